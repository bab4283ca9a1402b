package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/killallgit/meeting-recorder/internal/logging"
	"github.com/killallgit/meeting-recorder/internal/services/cache"
)

// CachedStore reuses presigned links while at least half of their lifetime remains
type CachedStore struct {
	ObjectStore
	urls cache.Cache
}

// NewCachedStore wraps store; a nil cache disables link reuse
func NewCachedStore(store ObjectStore, urls cache.Cache) *CachedStore {
	if urls == nil {
		urls = cache.Noop{}
	}
	return &CachedStore{ObjectStore: store, urls: urls}
}

func (s *CachedStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if u, ok := s.urls.Get(ctx, key); ok {
		return u, nil
	}

	u, err := s.ObjectStore.PresignGet(ctx, key, ttl)
	if err != nil {
		return "", err
	}
	if err := s.urls.Set(ctx, key, u, ttl/2); err != nil {
		slog.WarnContext(ctx, "failed to cache presigned url", "key", key, logging.ErrKey, err)
	}
	return u, nil
}

// Delete forgets the cached links before removing the objects
func (s *CachedStore) Delete(ctx context.Context, keys ...string) error {
	if err := s.urls.Delete(ctx, keys...); err != nil {
		slog.WarnContext(ctx, "failed to drop cached urls", logging.ErrKey, err)
	}
	return s.ObjectStore.Delete(ctx, keys...)
}
