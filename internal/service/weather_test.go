package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeatherRequiresAPIKey(t *testing.T) {
	w := &Weather{Cache: newMemCache()}

	_, err := w.Current(context.Background(), "Brisbane")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestWeatherCachesResponses(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		hits.Add(1)

		assert.Equal(t, "Brisbane", r.URL.Query().Get("q"))
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))

		rw.Header().Set("Content-Type", "application/json")
		rw.Write([]byte(`{"main":{"temp":24.5}}`))
	}))
	defer srv.Close()

	w := &Weather{
		Cache:  newMemCache(),
		Client: &http.Client{Timeout: time.Second},
		APIKey: "test-key",
		base:   srv.URL,
	}

	ctx := context.Background()

	raw, err := w.Current(ctx, "Brisbane")
	require.NoError(t, err)
	assert.JSONEq(t, `{"main":{"temp":24.5}}`, string(raw))

	// Second lookup is served from the cache.
	raw, err = w.Current(ctx, "Brisbane")
	require.NoError(t, err)
	assert.JSONEq(t, `{"main":{"temp":24.5}}`, string(raw))
	assert.Equal(t, int32(1), hits.Load())
}

func TestWeatherUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newMemCache()
	w := &Weather{
		Cache:  c,
		Client: &http.Client{Timeout: time.Second},
		APIKey: "test-key",
		base:   srv.URL,
	}

	_, err := w.Current(context.Background(), "Brisbane")
	assert.Error(t, err)

	// Failures are never cached.
	assert.Len(t, c.data, 0)
}
