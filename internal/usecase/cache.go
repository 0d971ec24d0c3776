package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache stores verification status and finished results. A miss is
// reported as redis.Nil.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

// RedisCache keeps entries in Redis under a shared key prefix.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache wraps client. Keys are stored as prefix + ":" + key when
// prefix is set.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.client.Set(ctx, c.key(key), value, expiration).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, c.key(key)).Result()
}

// Ping reports whether Redis answers.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

// NopCache is used when Redis is not configured. Every read misses.
type NopCache struct{}

func (NopCache) Set(context.Context, string, interface{}, time.Duration) error { return nil }

func (NopCache) Get(context.Context, string) (string, error) { return "", redis.Nil }

func verificationKey(requestID string) string {
	return fmt.Sprintf("verification:%s", requestID)
}

const processingMarker = "processing"
