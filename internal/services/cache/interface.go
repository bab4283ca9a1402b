// Package cache keeps short-lived string values such as presigned download links.
package cache

import (
	"context"
	"time"
)

// Cache defines the interface for cache implementations
type Cache interface {
	// Get returns the value and whether it was present and unexpired
	Get(ctx context.Context, key string) (string, bool)

	// Set stores a value in the cache with a TTL
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes every key; missing keys are ignored
	Delete(ctx context.Context, keys ...string) error
}

// CacheStats provides statistics about cache usage
type CacheStats struct {
	Hits      int64
	Misses    int64
	Sets      int64
	Evictions int64
	Entries   int64
}

// StatsProvider interface for caches that provide statistics
type StatsProvider interface {
	Stats() CacheStats
}

// Noop never stores anything
type Noop struct{}

func (Noop) Get(context.Context, string) (string, bool) { return "", false }
func (Noop) Set(context.Context, string, string, time.Duration) error { return nil }
func (Noop) Delete(context.Context, ...string) error { return nil }
