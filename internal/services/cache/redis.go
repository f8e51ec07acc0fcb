package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores entries in Redis under a key prefix, so several
// API instances share geocoding results.
type RedisCache struct {
	client *redis.Client
	prefix string
	log    *slog.Logger

	hits    atomic.Int64
	misses  atomic.Int64
	sets    atomic.Int64
	deletes atomic.Int64
}

// NewRedisCache connects to the Redis server at redisURL
// (redis://[user:pass@]host:port/db) and verifies it with a PING.
func NewRedisCache(ctx context.Context, redisURL, prefix string, log *slog.Logger) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisCacheFromClient(client, prefix, log), nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(client *redis.Client, prefix string, log *slog.Logger) *RedisCache {
	if log == nil {
		log = slog.Default()
	}
	return &RedisCache{client: client, prefix: prefix, log: log}
}

func (rc *RedisCache) key(k string) string {
	return rc.prefix + k
}

// Get retrieves a value from the cache. Connection errors count as misses.
func (rc *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := rc.client.Get(ctx, rc.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			rc.log.Warn("redis get failed", "key", key, "error", err)
		}
		rc.misses.Add(1)
		return nil, false
	}
	rc.hits.Add(1)
	return val, true
}

// Set stores a value in the cache with a TTL
func (rc *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := rc.client.Set(ctx, rc.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	rc.sets.Add(1)
	return nil
}

// Delete removes a value from the cache
func (rc *RedisCache) Delete(ctx context.Context, key string) error {
	n, err := rc.client.Del(ctx, rc.key(key)).Result()
	if err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	rc.deletes.Add(n)
	return nil
}

// Clear removes every key under the cache prefix
func (rc *RedisCache) Clear(ctx context.Context) error {
	iter := rc.client.Scan(ctx, 0, rc.prefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := rc.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis clear: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(batch) > 0 {
		if err := rc.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis clear: %w", err)
		}
	}
	return nil
}

// Has checks if a key exists in the cache
func (rc *RedisCache) Has(ctx context.Context, key string) bool {
	n, err := rc.client.Exists(ctx, rc.key(key)).Result()
	return err == nil && n > 0
}

// Stats returns client-side counters
func (rc *RedisCache) Stats() CacheStats {
	return CacheStats{
		Hits:    rc.hits.Load(),
		Misses:  rc.misses.Load(),
		Sets:    rc.sets.Load(),
		Deletes: rc.deletes.Load(),
	}
}

// Ping checks connectivity, used by the health endpoint
func (rc *RedisCache) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// Close closes the underlying client
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}
