package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/EllieBekrian/cab432/internal/model"
	"github.com/EllieBekrian/cab432/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/viper"
)

var (
	ErrTooLarge   = errors.New("file exceeds the maximum allowed size")
	ErrBadRequest = errors.New("filename and a positive size are required")
)

// URLSigner issues time-limited upload/download URLs for object
// storage, so file bytes never flow through this service.
type URLSigner interface {
	SignUpload(ctx context.Context, key, contentType string, expiry time.Duration) (string, error)
	SignDownload(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Transfers issues presigned transfer URLs and tracks the pending
// uploads they belong to.
type Transfers struct {
	Store   store.Store
	Signer  URLSigner
	Expiry  time.Duration
	MaxSize int64
}

func NewTransfers(s store.Store, signer URLSigner) *Transfers {
	return &Transfers{
		Store:   s,
		Signer:  signer,
		Expiry:  time.Duration(viper.GetInt("presign.expiry")) * time.Second,
		MaxSize: viper.GetInt64("upload.max_size"),
	}
}

// CreateUpload validates the request, records a pending transfer and
// returns it together with a presigned upload URL. Nothing is written
// for invalid or oversized requests.
func (t *Transfers) CreateUpload(ctx context.Context, owner, filename, contentType string, size int64) (*model.PendingTransfer, string, error) {
	if filename == "" || size <= 0 {
		return nil, "", ErrBadRequest
	}

	if size > t.MaxSize {
		return nil, "", ErrTooLarge
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	transfer := model.PendingTransfer{
		ID:          uuid.NewString(),
		Owner:       owner,
		FileName:    filename,
		ContentType: contentType,
		Size:        size,
		Status:      "pending",
		CreatedAt:   time.Now().UTC(),
	}
	// Objects get their own key so users can upload files with the
	// same name without clobbering each other's objects.
	transfer.FileKey = fmt.Sprintf("uploads/%s/%s%s", owner, transfer.ID, path.Ext(filename))

	rec, err := store.NewRecord(owner, store.TransferSort(transfer.ID), store.KindTransfer, transfer)
	if err != nil {
		return nil, "", err
	}

	if err := t.Store.Put(ctx, rec); err != nil {
		return nil, "", fmt.Errorf("failed to save pending transfer, %w", err)
	}

	url, err := t.Signer.SignUpload(ctx, transfer.FileKey, contentType, t.Expiry)
	if err != nil {
		return nil, "", err
	}

	return &transfer, url, nil
}

// DownloadURL issues a presigned download URL for a stored object.
func (t *Transfers) DownloadURL(ctx context.Context, fileKey string) (string, error) {
	if fileKey == "" {
		return "", ErrBadRequest
	}

	return t.Signer.SignDownload(ctx, fileKey, t.Expiry)
}
