// Package cache wraps the redis client that fronts the durable store.
// The cache is advisory and never authoritative: every failure is
// logged and turned into a miss or a no-op so a broken or slow redis
// degrades reads to the store instead of failing requests.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// TTLs for the record kinds sharing this cache.
const (
	MetadataTTL = time.Hour
	ProgressTTL = time.Hour
	WeatherTTL  = 5 * time.Minute
)

// opTimeout bounds every cache operation so a stalled redis can't
// hold up a metadata read or write.
const opTimeout = 250 * time.Millisecond

// Keys are namespaced per record kind to avoid collisions across the
// kinds sharing the same cache.
func FilesKey(owner string) string              { return "files:" + owner }
func ProgressKey(owner, fileName string) string { return "progress:" + owner + ":" + fileName }
func WeatherKey(city string) string             { return "weather:" + city }

type Cache struct {
	c *redis.Client
}

// New connects to redis. An unreachable redis is not fatal, requests
// fall through to the durable store until it recovers.
func New() *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:         viper.GetString("redis.addr"),
		DB:           viper.GetInt("redis.db"),
		DialTimeout:  time.Second,
		ReadTimeout:  opTimeout,
		WriteTimeout: opTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		zap.L().Warn("Redis unreachable, serving from the durable store until it recovers", zap.Error(err))
	}

	return &Cache{c: client}
}

// Get returns the cached value for key, or a miss on any error.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	val, err := c.c.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zap.L().Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	return val, true
}

// Set stores value under key. Failures are a no-op.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.c.Set(ctx, key, value, ttl).Err(); err != nil {
		zap.L().Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Del drops a key. Failures are a no-op, the entry just expires on
// its own TTL instead.
func (c *Cache) Del(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.c.Del(ctx, key).Err(); err != nil {
		zap.L().Warn("Cache delete failed", zap.String("key", key), zap.Error(err))
	}
}
