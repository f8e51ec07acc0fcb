package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryCache is a size-bounded in-process cache. When full it evicts the
// entries closest to expiry first.
type MemoryCache struct {
	mu       sync.RWMutex
	items    map[string]*cacheItem
	maxBytes int64
	size     atomic.Int64

	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	deletes   atomic.Int64
	evictions atomic.Int64

	sweepEvery time.Duration
	stopCh     chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

type cacheItem struct {
	value  []byte
	expiry time.Time
	size   int64
}

// NewMemoryCache creates a new in-memory cache holding up to maxSizeMB
// megabytes. A non-positive size disables the bound.
func NewMemoryCache(maxSizeMB int64) *MemoryCache {
	return newMemoryCache(maxSizeMB*1024*1024, time.Minute)
}

func newMemoryCache(maxBytes int64, sweepEvery time.Duration) *MemoryCache {
	mc := &MemoryCache{
		items:      make(map[string]*cacheItem),
		maxBytes:   maxBytes,
		sweepEvery: sweepEvery,
		stopCh:     make(chan struct{}),
	}

	mc.wg.Add(1)
	go mc.sweepLoop()

	return mc
}

// Get retrieves a value from the cache
func (mc *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool) {
	mc.mu.RLock()
	item, exists := mc.items[key]
	mc.mu.RUnlock()

	if !exists {
		mc.misses.Add(1)
		return nil, false
	}

	if time.Now().After(item.expiry) {
		mc.remove(key, item)
		mc.misses.Add(1)
		return nil, false
	}

	mc.hits.Add(1)
	return item.value, true
}

// Set stores a value in the cache with a TTL
func (mc *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	item := &cacheItem{
		value:  value,
		expiry: time.Now().Add(ttl),
		size:   int64(len(key) + len(value)),
	}

	mc.mu.Lock()
	if old, exists := mc.items[key]; exists {
		delete(mc.items, key)
		mc.size.Add(-old.size)
	}
	mc.makeRoomLocked(item.size)
	mc.items[key] = item
	mc.size.Add(item.size)
	mc.mu.Unlock()

	mc.sets.Add(1)
	return nil
}

// Delete removes a value from the cache
func (mc *MemoryCache) Delete(ctx context.Context, key string) error {
	mc.mu.Lock()
	if item, exists := mc.items[key]; exists {
		delete(mc.items, key)
		mc.size.Add(-item.size)
		mc.deletes.Add(1)
	}
	mc.mu.Unlock()
	return nil
}

// Clear removes all values from the cache
func (mc *MemoryCache) Clear(ctx context.Context) error {
	mc.mu.Lock()
	mc.items = make(map[string]*cacheItem)
	mc.size.Store(0)
	mc.mu.Unlock()
	return nil
}

// Has checks if a live key exists in the cache
func (mc *MemoryCache) Has(ctx context.Context, key string) bool {
	mc.mu.RLock()
	item, exists := mc.items[key]
	mc.mu.RUnlock()

	return exists && time.Now().Before(item.expiry)
}

// Len returns the number of stored entries, expired ones included
func (mc *MemoryCache) Len() int {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return len(mc.items)
}

// Stats returns cache statistics
func (mc *MemoryCache) Stats() CacheStats {
	return CacheStats{
		Hits:      mc.hits.Load(),
		Misses:    mc.misses.Load(),
		Sets:      mc.sets.Load(),
		Deletes:   mc.deletes.Load(),
		Evictions: mc.evictions.Load(),
		Size:      mc.size.Load(),
		MaxSize:   mc.maxBytes,
	}
}

// Close stops the background sweeper. Safe to call more than once.
func (mc *MemoryCache) Close() error {
	mc.stopOnce.Do(func() { close(mc.stopCh) })
	mc.wg.Wait()
	return nil
}

// remove deletes key only if it still maps to item
func (mc *MemoryCache) remove(key string, item *cacheItem) {
	mc.mu.Lock()
	if current, ok := mc.items[key]; ok && current == item {
		delete(mc.items, key)
		mc.size.Add(-item.size)
		mc.evictions.Add(1)
	}
	mc.mu.Unlock()
}

func (mc *MemoryCache) sweepLoop() {
	defer mc.wg.Done()
	ticker := time.NewTicker(mc.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			mc.mu.Lock()
			mc.removeExpiredLocked(time.Now())
			mc.mu.Unlock()
		case <-mc.stopCh:
			return
		}
	}
}

func (mc *MemoryCache) removeExpiredLocked(now time.Time) {
	for key, item := range mc.items {
		if now.After(item.expiry) {
			delete(mc.items, key)
			mc.size.Add(-item.size)
			mc.evictions.Add(1)
		}
	}
}

// makeRoomLocked evicts until sizeNeeded fits. Caller holds mu.
func (mc *MemoryCache) makeRoomLocked(sizeNeeded int64) {
	if mc.maxBytes <= 0 || mc.size.Load()+sizeNeeded <= mc.maxBytes {
		return
	}

	mc.removeExpiredLocked(time.Now())

	for mc.size.Load()+sizeNeeded > mc.maxBytes && len(mc.items) > 0 {
		var (
			victim    string
			victimExp time.Time
		)
		for key, item := range mc.items {
			if victim == "" || item.expiry.Before(victimExp) {
				victim, victimExp = key, item.expiry
			}
		}
		item := mc.items[victim]
		delete(mc.items, victim)
		mc.size.Add(-item.size)
		mc.evictions.Add(1)
	}
}
