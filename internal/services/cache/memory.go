package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const sweepInterval = time.Minute

// MemoryCache implements Cache in process memory with a bounded number of entries
type MemoryCache struct {
	mu         sync.Mutex
	items      map[string]cacheItem
	maxEntries int
	now        func() time.Time

	hits, misses, sets, evictions atomic.Int64

	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

type cacheItem struct {
	value  string
	expiry time.Time
}

// NewMemoryCache creates a cache holding at most maxEntries values; zero means unbounded
func NewMemoryCache(maxEntries int) *MemoryCache {
	mc := &MemoryCache{
		items:      make(map[string]cacheItem),
		maxEntries: maxEntries,
		now:        time.Now,
		stopCh:     make(chan struct{}),
	}

	mc.wg.Add(1)
	go mc.sweepLoop()

	return mc
}

func (mc *MemoryCache) Get(_ context.Context, key string) (string, bool) {
	mc.mu.Lock()
	item, ok := mc.items[key]
	if ok && !mc.now().Before(item.expiry) {
		delete(mc.items, key)
		ok = false
	}
	mc.mu.Unlock()

	if !ok {
		mc.misses.Add(1)
		return "", false
	}
	mc.hits.Add(1)
	return item.value, true
}

func (mc *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, exists := mc.items[key]; !exists && mc.maxEntries > 0 && len(mc.items) >= mc.maxEntries {
		mc.evictLocked()
	}
	mc.items[key] = cacheItem{value: value, expiry: mc.now().Add(ttl)}
	mc.sets.Add(1)
	return nil
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	for _, k := range keys {
		delete(mc.items, k)
	}
	mc.mu.Unlock()
	return nil
}

// Stats returns cache statistics
func (mc *MemoryCache) Stats() CacheStats {
	mc.mu.Lock()
	entries := len(mc.items)
	mc.mu.Unlock()

	return CacheStats{
		Hits:      mc.hits.Load(),
		Misses:    mc.misses.Load(),
		Sets:      mc.sets.Load(),
		Evictions: mc.evictions.Load(),
		Entries:   int64(entries),
	}
}

// Stop ends the background sweep; safe to call more than once
func (mc *MemoryCache) Stop() {
	mc.once.Do(func() { close(mc.stopCh) })
	mc.wg.Wait()
}

func (mc *MemoryCache) sweepLoop() {
	defer mc.wg.Done()
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			mc.removeExpired()
		case <-mc.stopCh:
			return
		}
	}
}

func (mc *MemoryCache) removeExpired() {
	now := mc.now()
	mc.mu.Lock()
	for key, item := range mc.items {
		if !now.Before(item.expiry) {
			delete(mc.items, key)
			mc.evictions.Add(1)
		}
	}
	mc.mu.Unlock()
}

// evictLocked drops the entry closest to expiry. Caller holds mu.
func (mc *MemoryCache) evictLocked() {
	var (
		victim string
		soon   time.Time
		found  bool
	)
	for key, item := range mc.items {
		if !found || item.expiry.Before(soon) {
			victim, soon, found = key, item.expiry, true
		}
	}
	if found {
		delete(mc.items, victim)
		mc.evictions.Add(1)
	}
}
