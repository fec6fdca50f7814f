package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Redis-backed Cache. The client is constructed by the caller and
// injected; it may be shared with other components for the process lifetime.
type Redis struct {
	client     *redis.Client
	prefix     string
	defaultTTL time.Duration
	closed     atomic.Bool
}

// NewRedis returns a Cache on top of the given client. prefix is prepended to
// every key so DeleteByPrefix cannot touch foreign keyspaces.
func NewRedis(client *redis.Client, prefix string, defaultTTL time.Duration) *Redis {
	return &Redis{
		client:     client,
		prefix:     prefix,
		defaultTTL: defaultTTL,
	}
}

func (c *Redis) key(k string) string {
	return c.prefix + k
}

// Get retrieves a value from Redis. redis.Nil maps to ErrCacheMiss.
func (c *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrCacheClosed
	}
	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	return val, nil
}

// Set stores a value with the given TTL.
func (c *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	return c.client.Set(ctx, c.key(key), value, ttl).Err()
}

// DeleteByPrefix removes all keys starting with prefix using SCAN + DEL,
// which is safer than KEYS against a shared Redis.
func (c *Redis) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	if c.closed.Load() {
		return 0, ErrCacheClosed
	}
	var (
		cursor  uint64
		removed int
	)
	pattern := c.key(prefix) + "*"
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return removed, err
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			removed += int(n)
			if err != nil {
				return removed, err
			}
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

// Ping checks the Redis connection.
func (c *Redis) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (c *Redis) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		return c.client.Close()
	}
	return nil
}

var _ Cache = (*Redis)(nil)
