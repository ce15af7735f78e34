// Package store implements the durable record store. It's the single
// source of truth for users, file metadata, progress and activity
// entries. Everything lives in one heterogeneous table keyed by
// (owner, sortKey), the way the DynamoDB table behind the original
// deployment is laid out, so records of different kinds share the
// same keyspace and callers must filter by kind.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrUnavailable marks any backend failure. Callers decide whether
	// to retry or degrade, the store never swallows it.
	ErrUnavailable = errors.New("store unavailable")

	// ErrNotFound is returned by GetByKey when no record exists.
	ErrNotFound = errors.New("record not found")
)

// Record kinds sharing the table.
const (
	KindUser     = "user"
	KindFile     = "file"
	KindProgress = "progress"
	KindActivity = "activity"
	KindTransfer = "transfer"
)

// UserSort is the fixed sort key of a user's profile record.
const UserSort = "profile"

func FileSort(fileName string) string     { return "file#" + fileName }
func ProgressSort(fileName string) string { return "progress#" + fileName }
func ActivitySort(id string) string       { return id }
func TransferSort(id string) string       { return "transfer#" + id }

// Record is the envelope every stored item uses. The payload is kept
// as JSON so the table can stay heterogeneous across record kinds.
type Record struct {
	Owner     string    `dynamodbav:"user" gorm:"primaryKey;column:owner;size:256"`
	SortKey   string    `dynamodbav:"sortKey" gorm:"primaryKey;column:sort_key;size:512"`
	Kind      string    `dynamodbav:"kind" gorm:"column:kind;index"`
	Value     []byte    `dynamodbav:"value" gorm:"column:value"`
	UpdatedAt time.Time `dynamodbav:"updatedAt" gorm:"column:updated_at"`
}

func (Record) TableName() string { return "records" }

// NewRecord wraps a payload into a storable record.
func NewRecord(owner, sortKey, kind string, payload any) (Record, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Record{}, fmt.Errorf("failed to encode %s record, %w", kind, err)
	}

	return Record{
		Owner:     owner,
		SortKey:   sortKey,
		Kind:      kind,
		Value:     raw,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// Decode unmarshals the record payload into dst.
func (r Record) Decode(dst any) error {
	if err := json.Unmarshal(r.Value, dst); err != nil {
		return fmt.Errorf("failed to decode %s record, %w", r.Kind, err)
	}
	return nil
}

// Store is the durable-store contract. All operations are independent,
// there are no multi-record transactions. QueryByOwner returns records
// in unspecified order. Scan walks the whole table and is reserved for
// administrative reads, never per-request hot paths.
type Store interface {
	Put(ctx context.Context, rec Record) error
	GetByKey(ctx context.Context, owner, sortKey string) (Record, error)
	QueryByOwner(ctx context.Context, owner string) ([]Record, error)
	Scan(ctx context.Context, keep func(Record) bool) ([]Record, error)
	Delete(ctx context.Context, owner, sortKey string) error
}

// New picks the configured backend.
func New() (Store, error) {
	switch t := viper.GetString("store.type"); t {
	case "dynamo":
		return NewDynamo()
	case "sqlite", "postgres":
		return NewGorm(t, viper.GetString("store.dsn"))
	default:
		return nil, fmt.Errorf("unknown store type %q", t)
	}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w (%v)", op, ErrUnavailable, err)
}
