package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Gorm keeps the same single-table layout as the DynamoDB backend in
// a relational database. Used for local runs and in tests.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(driver, dsn string) (*Gorm, error) {
	var dialector gorm.Dialector

	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown gorm driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database, %w", driver, err)
	}

	if err := db.AutoMigrate(Record{}); err != nil {
		return nil, fmt.Errorf("failed to automigrate records table, %w", err)
	}

	return &Gorm{db: db}, nil
}

func (g *Gorm) Put(ctx context.Context, rec Record) error {
	err := g.db.
		WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner"}, {Name: "sort_key"}},
			UpdateAll: true,
		}).
		Create(&rec).
		Error
	if err != nil {
		return unavailable("gorm put", err)
	}

	return nil
}

func (g *Gorm) GetByKey(ctx context.Context, owner, sortKey string) (Record, error) {
	var rec Record

	err := g.db.
		WithContext(ctx).
		Where("owner = ? AND sort_key = ?", owner, sortKey).
		First(&rec).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Record{}, ErrNotFound
		}

		return Record{}, unavailable("gorm get", err)
	}

	return rec, nil
}

func (g *Gorm) QueryByOwner(ctx context.Context, owner string) ([]Record, error) {
	var recs []Record

	err := g.db.
		WithContext(ctx).
		Where("owner = ?", owner).
		Find(&recs).
		Error
	if err != nil {
		return nil, unavailable("gorm query", err)
	}

	return recs, nil
}

func (g *Gorm) Scan(ctx context.Context, keep func(Record) bool) ([]Record, error) {
	var all []Record

	err := g.db.
		WithContext(ctx).
		Find(&all).
		Error
	if err != nil {
		return nil, unavailable("gorm scan", err)
	}

	if keep == nil {
		return all, nil
	}

	recs := all[:0]
	for _, rec := range all {
		if keep(rec) {
			recs = append(recs, rec)
		}
	}

	return recs, nil
}

func (g *Gorm) Delete(ctx context.Context, owner, sortKey string) error {
	err := g.db.
		WithContext(ctx).
		Where("owner = ? AND sort_key = ?", owner, sortKey).
		Delete(&Record{}).
		Error
	if err != nil {
		return unavailable("gorm delete", err)
	}

	return nil
}
