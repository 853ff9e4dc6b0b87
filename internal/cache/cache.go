package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	gocache "github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by Get when the key is absent.
var ErrCacheMiss = gocache.ErrCacheMiss

type Cache interface {
	Get(ctx context.Context, key string, target any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Through returns the cached value for key, or calls load on a miss. The loaded
// value is stored only when load reports it as cacheable. Cache errors other
// than a miss are returned as is; the caller decides whether to fall back.
func Through[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func() (T, bool, error)) (T, error) {
	var v T
	err := c.Get(ctx, key, &v)
	if !errors.Is(err, ErrCacheMiss) {
		return v, err
	}

	v, cacheable, err := load()
	if err != nil || !cacheable {
		return v, err
	}

	// fire and forget
	//nolint:errcheck
	c.Set(ctx, key, v, ttl)
	return v, nil
}

type RedisCache struct {
	instance *gocache.Cache
}

func (c *RedisCache) Get(ctx context.Context, key string, target any) error {
	return c.instance.Get(ctx, key, target)
}

func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return c.instance.Set(&gocache.Item{
		Ctx:   ctx,
		Key:   key,
		Value: value,
		TTL:   ttl,
	})
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.instance.Delete(ctx, key)
}

// NewRedisCache builds a cache over client. A nil client with withLocalCache
// gives a process-local cache only.
func NewRedisCache(client redis.UniversalClient, withLocalCache bool) *RedisCache {
	var localCache gocache.LocalCache
	if withLocalCache {
		localCache = gocache.NewTinyLFU(10000, time.Minute)
	}
	opts := &gocache.Options{LocalCache: localCache}
	if client != nil {
		opts.Redis = client
	}
	return &RedisCache{gocache.New(opts)}
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("unable to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("unable to ping redis: %w", err)
	}
	return client, nil
}
