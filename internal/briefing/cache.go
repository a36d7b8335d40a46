package briefing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/redis/go-redis/v9"
)

// Cache stores generated briefing text.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisCache implements Cache with plain string keys.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache creates a new Redis-backed briefing cache.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, prefix: "briefing:"}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read briefing cache: %w", err)
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write briefing cache: %w", err)
	}
	return nil
}

// MemoryCache implements Cache in process for runs without Redis.
type MemoryCache struct {
	cache *ristretto.Cache
}

func NewMemoryCache() (*MemoryCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10000,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &MemoryCache{cache: cache}, nil
}

func (c *MemoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := c.cache.Get(key)
	if !ok {
		return "", false, nil
	}
	return v.(string), true, nil
}

// Set costs each entry by its length and blocks until the write is visible.
func (c *MemoryCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.cache.SetWithTTL(key, value, int64(len(value)), ttl)
	c.cache.Wait()
	return nil
}

func (c *MemoryCache) Close() {
	c.cache.Close()
}
