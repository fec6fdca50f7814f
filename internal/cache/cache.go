// Package cache provides the byte-oriented key-value cache used by the event
// discovery feed. The cache is best-effort everywhere: it is consulted first
// and repopulated on miss, but it is never a dependency of correctness.
package cache

import (
	"context"
	"time"
)

// Cache is a key-value cache with per-entry TTL.
// All implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a value. Returns ErrCacheMiss if the key is absent or
	// expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL. A zero TTL falls back to the
	// implementation's default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// DeleteByPrefix removes every key starting with prefix and returns the
	// number of entries removed.
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)

	// Close releases any resources held by the cache.
	Close() error
}

// Error is the error type for cache operations.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrCacheMiss indicates the key was not found or has expired.
	ErrCacheMiss Error = "cache miss"

	// ErrCacheClosed indicates the cache has been closed.
	ErrCacheClosed Error = "cache closed"
)
