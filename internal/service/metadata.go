// Package service holds the business logic sitting between the HTTP
// handlers and the durable store, cache and event bus.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/EllieBekrian/cab432/internal/cache"
	"github.com/EllieBekrian/cab432/internal/model"
	"github.com/EllieBekrian/cab432/internal/store"
	"go.uber.org/zap"
)

// Cache is the slice of the cache layer the services need. Every
// implementation must treat internal failures as misses/no-ops.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Del(ctx context.Context, key string)
}

// Publisher fans state-change events out to live listeners.
type Publisher interface {
	Publish(name string, data map[string]any)
}

// Metadata orchestrates cache-aside reads and writes for file
// metadata and progress records. The durable store is always
// authoritative, the cache only accelerates reads and self-heals on
// the next miss after it goes stale.
type Metadata struct {
	Store store.Store
	Cache Cache
	Bus   Publisher
}

func NewMetadata(s store.Store, c Cache, bus Publisher) *Metadata {
	return &Metadata{
		Store: s,
		Cache: c,
		Bus:   bus,
	}
}

// readThrough is the one cache-aside read path shared by all
// accessors: serve from cache when possible, otherwise load from the
// store and populate the cache. Loaders return found=false to skip
// caching (empty listings and absent records are never cached, so
// data appearing right after a miss is visible on the next read).
func readThrough[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func(context.Context) (T, bool, error)) (T, error) {
	var out T

	if raw, ok := c.Get(ctx, key); ok {
		if err := json.Unmarshal(raw, &out); err == nil {
			return out, nil
		}

		zap.L().Warn("Dropping undecodable cache entry", zap.String("key", key))
		c.Del(ctx, key)
	}

	val, found, err := load(ctx)
	if err != nil || !found {
		return val, err
	}

	if raw, err := json.Marshal(val); err == nil {
		c.Set(ctx, key, raw, ttl)
	}

	return val, nil
}

// FileMetadata returns every file record owned by owner. A store
// failure degrades to an empty listing, the contract already
// tolerates "no files found".
func (m *Metadata) FileMetadata(ctx context.Context, owner string) ([]model.FileMetadata, error) {
	return readThrough(ctx, m.Cache, cache.FilesKey(owner), cache.MetadataTTL,
		func(ctx context.Context) ([]model.FileMetadata, bool, error) {
			recs, err := m.Store.QueryByOwner(ctx, owner)
			if err != nil {
				zap.L().Error("Failed to query file metadata", zap.String("user", owner), zap.Error(err))
				return []model.FileMetadata{}, false, nil
			}

			files := make([]model.FileMetadata, 0, len(recs))
			for _, rec := range recs {
				// Records of all kinds share the owner's partition,
				// keep only the ones that actually describe files.
				if rec.Kind != store.KindFile {
					continue
				}

				var f model.FileMetadata
				if err := rec.Decode(&f); err != nil {
					zap.L().Warn("Skipping undecodable file record", zap.String("key", rec.SortKey), zap.Error(err))
					continue
				}

				files = append(files, f)
			}

			return files, len(files) > 0, nil
		})
}

// SaveFileMetadata writes through to the durable store and then folds
// the record into the cached listing. The two steps aren't atomic: a
// crash in between leaves the cache stale and the store correct,
// which the next cache miss repairs.
func (m *Metadata) SaveFileMetadata(ctx context.Context, f model.FileMetadata) error {
	rec, err := store.NewRecord(f.Owner, store.FileSort(f.FileName), store.KindFile, f)
	if err != nil {
		return err
	}

	if err := m.Store.Put(ctx, rec); err != nil {
		return fmt.Errorf("failed to save file metadata, %w", err)
	}

	key := cache.FilesKey(f.Owner)

	var files []model.FileMetadata
	if raw, ok := m.Cache.Get(ctx, key); ok {
		if err := json.Unmarshal(raw, &files); err != nil {
			files = nil
		}
	}

	// Last write wins per (owner, fileName), also in the cached view.
	replaced := false
	for i := range files {
		if files[i].FileName == f.FileName {
			files[i] = f
			replaced = true
			break
		}
	}
	if !replaced {
		files = append(files, f)
	}

	if raw, err := json.Marshal(files); err == nil {
		m.Cache.Set(ctx, key, raw, cache.MetadataTTL)
	}

	return nil
}

// SaveProgress writes the current progress through to the durable
// store, unconditionally overwrites the cache entry (partial progress
// is still valid data) and notifies live listeners.
func (m *Metadata) SaveProgress(ctx context.Context, owner, fileName string, progress int, status string) error {
	p := model.ProgressRecord{
		Owner:       owner,
		FileName:    fileName,
		Progress:    progress,
		Status:      status,
		LastUpdated: time.Now().UTC(),
	}

	rec, err := store.NewRecord(owner, store.ProgressSort(fileName), store.KindProgress, p)
	if err != nil {
		return err
	}

	if err := m.Store.Put(ctx, rec); err != nil {
		return fmt.Errorf("failed to save progress, %w", err)
	}

	if raw, err := json.Marshal(&p); err == nil {
		m.Cache.Set(ctx, cache.ProgressKey(owner, fileName), raw, cache.ProgressTTL)
	}

	if m.Bus != nil {
		m.Bus.Publish("progress", map[string]any{
			"user":     owner,
			"fileName": fileName,
			"progress": progress,
			"status":   status,
		})
	}

	return nil
}

// Progress returns the live progress record for (owner, fileName), or
// nil when none exists. Absence is never cached so a record created
// right after a miss shows up on the very next read.
func (m *Metadata) Progress(ctx context.Context, owner, fileName string) (*model.ProgressRecord, error) {
	return readThrough(ctx, m.Cache, cache.ProgressKey(owner, fileName), cache.ProgressTTL,
		func(ctx context.Context) (*model.ProgressRecord, bool, error) {
			rec, err := m.Store.GetByKey(ctx, owner, store.ProgressSort(fileName))
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return nil, false, nil
				}

				zap.L().Error("Failed to fetch progress",
					zap.String("user", owner),
					zap.String("file", fileName),
					zap.Error(err))
				return nil, false, nil
			}

			var p model.ProgressRecord
			if err := rec.Decode(&p); err != nil {
				return nil, false, err
			}

			return &p, true, nil
		})
}

// SaveActivity appends an entry to the owner's activity log.
func (m *Metadata) SaveActivity(ctx context.Context, owner, description string) error {
	a := model.ActivityRecord{
		Owner:       owner,
		ActivityID:  fmt.Sprintf("ACTIVITY#%d", time.Now().UnixMilli()),
		Description: description,
		Timestamp:   time.Now().UTC(),
	}

	rec, err := store.NewRecord(owner, store.ActivitySort(a.ActivityID), store.KindActivity, a)
	if err != nil {
		return err
	}

	if err := m.Store.Put(ctx, rec); err != nil {
		return fmt.Errorf("failed to save activity, %w", err)
	}

	return nil
}

// DeleteFile removes a file's metadata and progress records and drops
// the owner's cached listing.
func (m *Metadata) DeleteFile(ctx context.Context, owner, fileName string) error {
	if err := m.Store.Delete(ctx, owner, store.FileSort(fileName)); err != nil {
		return fmt.Errorf("failed to delete file metadata, %w", err)
	}

	if err := m.Store.Delete(ctx, owner, store.ProgressSort(fileName)); err != nil {
		zap.L().Warn("Failed to delete progress record",
			zap.String("user", owner),
			zap.String("file", fileName),
			zap.Error(err))
	}

	m.Cache.Del(ctx, cache.FilesKey(owner))
	m.Cache.Del(ctx, cache.ProgressKey(owner, fileName))

	return nil
}

// AllFiles lists every file record in the store. Scan-backed, admin
// reads only.
func (m *Metadata) AllFiles(ctx context.Context) ([]model.FileMetadata, error) {
	recs, err := m.Store.Scan(ctx, func(r store.Record) bool {
		return r.Kind == store.KindFile
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan files, %w", err)
	}

	files := make([]model.FileMetadata, 0, len(recs))
	for _, rec := range recs {
		var f model.FileMetadata
		if err := rec.Decode(&f); err != nil {
			continue
		}

		files = append(files, f)
	}

	return files, nil
}

// AllUsers lists every distinct user in the store. Scan-backed, admin
// reads only.
func (m *Metadata) AllUsers(ctx context.Context) ([]model.User, error) {
	recs, err := m.Store.Scan(ctx, func(r store.Record) bool {
		return r.Kind == store.KindUser
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan users, %w", err)
	}

	seen := make(map[string]bool, len(recs))
	users := make([]model.User, 0, len(recs))

	for _, rec := range recs {
		var u model.User
		if err := rec.Decode(&u); err != nil || u.Username == "" {
			continue
		}

		if seen[u.Username] {
			continue
		}
		seen[u.Username] = true

		if u.Role == "" {
			u.Role = model.RoleUser
		}

		// The hash never leaves the service layer.
		u.PasswordHash = ""

		users = append(users, u)
	}

	return users, nil
}

// SaveUser persists a user profile record.
func (m *Metadata) SaveUser(ctx context.Context, u model.User) error {
	if u.Role == "" {
		u.Role = model.RoleUser
	}

	rec, err := store.NewRecord(u.Username, store.UserSort, store.KindUser, u)
	if err != nil {
		return err
	}

	if err := m.Store.Put(ctx, rec); err != nil {
		return fmt.Errorf("failed to save user, %w", err)
	}

	return nil
}
