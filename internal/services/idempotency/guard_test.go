package idempotency

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/killallgit/meeting-recorder/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupDBGuard(t *testing.T) *DBGuard {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.IdempotencyKey{}))
	return NewDBGuard(db)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "room-egress:m1", RoomEgressKey("m1"))
	assert.Equal(t, "track-egress:r1:alice", TrackEgressKey("r1", "alice"))
}

func TestDBGuard_AcquireRelease(t *testing.T) {
	g := setupDBGuard(t)
	ctx := context.Background()

	ok, err := g.Acquire(ctx, "room-egress:m1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Acquire(ctx, "room-egress:m1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "held lease cannot be acquired twice")

	ok, err = g.Acquire(ctx, "room-egress:m2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "keys are independent")

	require.NoError(t, g.Release(ctx, "room-egress:m1"))

	ok, err = g.Acquire(ctx, "room-egress:m1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDBGuard_ExpiredLeaseIsTakenOver(t *testing.T) {
	g := setupDBGuard(t)
	ctx := context.Background()

	base := time.Now().UTC()
	g.now = func() time.Time { return base }

	ok, err := g.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	g.now = func() time.Time { return base.Add(2 * time.Second) }
	ok, err = g.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	g.now = func() time.Time { return base.Add(time.Hour) }
	purged, err := g.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}

func TestDBGuard_ConcurrentAcquire(t *testing.T) {
	g := setupDBGuard(t)
	ctx := context.Background()

	var winners int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := g.Acquire(ctx, "track-egress:r1:alice", time.Minute)
			assert.NoError(t, err)
			if ok {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners)
}

// Runs only against a reachable redis, e.g. REDIS_ADDR=localhost:6379
func TestRedisGuard(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	g := NewRedisGuard(client)
	ctx := context.Background()
	key := "test:" + time.Now().Format(time.RFC3339Nano)

	ok, err := g.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, g.Release(ctx, key))
	ok, err = g.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, g.Release(ctx, key))
}
