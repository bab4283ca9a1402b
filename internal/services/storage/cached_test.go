package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/killallgit/meeting-recorder/internal/services/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	presigns int
	deleted  []string
	fail     bool
}

func (s *countingStore) Download(context.Context, string, string) error { return nil }
func (s *countingStore) EnsureBucket(context.Context) error { return nil }

func (s *countingStore) Delete(_ context.Context, keys ...string) error {
	s.deleted = append(s.deleted, keys...)
	return nil
}

func (s *countingStore) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	if s.fail {
		return "", errors.New("presign failed")
	}
	s.presigns++
	return fmt.Sprintf("https://store/%s?n=%d", key, s.presigns), nil
}

func TestCachedStore_ReusesLinks(t *testing.T) {
	inner := &countingStore{}
	urls := cache.NewMemoryCache(10)
	t.Cleanup(urls.Stop)
	s := NewCachedStore(inner, urls)
	ctx := context.Background()

	first, err := s.PresignGet(ctx, "m-1/room.mp4", time.Hour)
	require.NoError(t, err)
	second, err := s.PresignGet(ctx, "m-1/room.mp4", time.Hour)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.presigns)
}

func TestCachedStore_DeleteForgetsLinks(t *testing.T) {
	inner := &countingStore{}
	urls := cache.NewMemoryCache(10)
	t.Cleanup(urls.Stop)
	s := NewCachedStore(inner, urls)
	ctx := context.Background()

	_, err := s.PresignGet(ctx, "m-1/room.mp4", time.Hour)
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "m-1/room.mp4"))
	assert.Equal(t, []string{"m-1/room.mp4"}, inner.deleted)

	_, err = s.PresignGet(ctx, "m-1/room.mp4", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.presigns)
}

func TestCachedStore_ErrorsAreNotCached(t *testing.T) {
	inner := &countingStore{fail: true}
	s := NewCachedStore(inner, nil)

	_, err := s.PresignGet(context.Background(), "k", time.Hour)
	assert.Error(t, err)
}
