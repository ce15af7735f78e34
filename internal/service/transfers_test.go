package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/EllieBekrian/cab432/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSigner returns deterministic URLs and counts calls.
type fakeSigner struct {
	uploads   int
	downloads int
}

func (f *fakeSigner) SignUpload(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	f.uploads++
	return "https://bucket.example/" + key + "?sig=up", nil
}

func (f *fakeSigner) SignDownload(_ context.Context, key string, _ time.Duration) (string, error) {
	f.downloads++
	return "https://bucket.example/" + key + "?sig=down", nil
}

func newTestTransfers(maxSize int64) (*Transfers, *memStore, *fakeSigner) {
	s := newMemStore()
	signer := &fakeSigner{}

	return &Transfers{
		Store:   s,
		Signer:  signer,
		Expiry:  15 * time.Minute,
		MaxSize: maxSize,
	}, s, signer
}

func TestCreateUpload(t *testing.T) {
	tr, s, signer := newTestTransfers(100 << 20)
	ctx := context.Background()

	transfer, url, err := tr.CreateUpload(ctx, "alice", "holiday.mp4", "video/mp4", 1<<20)
	require.NoError(t, err)
	require.NotNil(t, transfer)

	assert.Equal(t, "alice", transfer.Owner)
	assert.Equal(t, "holiday.mp4", transfer.FileName)
	assert.Equal(t, "pending", transfer.Status)
	assert.True(t, strings.HasPrefix(transfer.FileKey, "uploads/alice/"))
	assert.True(t, strings.HasSuffix(transfer.FileKey, ".mp4"), "object key keeps the extension")
	assert.Contains(t, url, transfer.FileKey)
	assert.Equal(t, 1, signer.uploads)

	// The pending transfer is durably recorded.
	rec, err := s.GetByKey(ctx, "alice", store.TransferSort(transfer.ID))
	require.NoError(t, err)
	assert.Equal(t, store.KindTransfer, rec.Kind)
}

func TestCreateUploadDefaultsContentType(t *testing.T) {
	tr, _, _ := newTestTransfers(100 << 20)

	transfer, _, err := tr.CreateUpload(context.Background(), "alice", "blob", "", 10)
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", transfer.ContentType)
}

func TestCreateUploadRejectsOversize(t *testing.T) {
	tr, s, signer := newTestTransfers(1 << 20)

	_, _, err := tr.CreateUpload(context.Background(), "alice", "huge.mp4", "video/mp4", 2<<20)
	assert.ErrorIs(t, err, ErrTooLarge)

	// Nothing was written and no URL was signed.
	assert.Equal(t, 0, s.puts)
	assert.Equal(t, 0, signer.uploads)
}

func TestCreateUploadValidation(t *testing.T) {
	tr, s, _ := newTestTransfers(1 << 20)
	ctx := context.Background()

	_, _, err := tr.CreateUpload(ctx, "alice", "", "video/mp4", 10)
	assert.ErrorIs(t, err, ErrBadRequest)

	_, _, err = tr.CreateUpload(ctx, "alice", "a.mp4", "video/mp4", 0)
	assert.ErrorIs(t, err, ErrBadRequest)

	_, _, err = tr.CreateUpload(ctx, "alice", "a.mp4", "video/mp4", -3)
	assert.ErrorIs(t, err, ErrBadRequest)

	assert.Equal(t, 0, s.puts)
}

func TestDownloadURL(t *testing.T) {
	tr, _, signer := newTestTransfers(1 << 20)

	url, err := tr.DownloadURL(context.Background(), "uploads/alice/abc.mp4")
	require.NoError(t, err)
	assert.Contains(t, url, "uploads/alice/abc.mp4")
	assert.Equal(t, 1, signer.downloads)

	_, err = tr.DownloadURL(context.Background(), "")
	assert.ErrorIs(t, err, ErrBadRequest)
}
