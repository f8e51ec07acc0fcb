package cache

import (
	"context"
	"time"
)

// Cache defines the interface for cache implementations. Geocoding results
// are stored as encoded bytes so every backend can hold them.
type Cache interface {
	// Get retrieves a value from the cache
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value in the cache with a TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from the cache
	Clear(ctx context.Context) error

	// Has checks if a key exists in the cache
	Has(ctx context.Context, key string) bool

	// Close releases background goroutines and connections
	Close() error
}

// CacheStats provides statistics about cache usage
type CacheStats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Sets      int64 `json:"sets"`
	Deletes   int64 `json:"deletes"`
	Evictions int64 `json:"evictions"`
	Size      int64 `json:"size"`
	MaxSize   int64 `json:"max_size"`
}

// StatsProvider interface for caches that provide statistics
type StatsProvider interface {
	Stats() CacheStats
}

// DefaultTTL applies when Set is called with a non-positive TTL
const DefaultTTL = 30 * time.Minute
