package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/killallgit/route-planner-api/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	rc, err := NewRedisCache(context.Background(), "redis://"+mr.Addr(), "test:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	return rc, mr
}

func TestRedisCache_GetSet(t *testing.T) {
	ctx := context.Background()
	rc, mr := setupRedis(t)

	_, ok := rc.Get(ctx, "missing")
	assert.False(t, ok)

	require.NoError(t, rc.Set(ctx, "geocode:saltillo", []byte("payload"), time.Hour))

	// stored under the prefix
	raw, err := mr.Get("test:geocode:saltillo")
	require.NoError(t, err)
	assert.Equal(t, "payload", raw)

	val, ok := rc.Get(ctx, "geocode:saltillo")
	assert.True(t, ok)
	assert.Equal(t, []byte("payload"), val)
	assert.True(t, rc.Has(ctx, "geocode:saltillo"))

	stats := rc.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestRedisCache_TTL(t *testing.T) {
	ctx := context.Background()
	rc, mr := setupRedis(t)

	require.NoError(t, rc.Set(ctx, "k", []byte("v"), time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("test:k"))

	mr.FastForward(2 * time.Minute)
	assert.False(t, rc.Has(ctx, "k"))
}

func TestRedisCache_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	rc, mr := setupRedis(t)

	require.NoError(t, mr.Set("other:keep", "x"))
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, rc.Set(ctx, k, []byte(k), time.Minute))
	}

	require.NoError(t, rc.Delete(ctx, "a"))
	assert.False(t, rc.Has(ctx, "a"))

	require.NoError(t, rc.Clear(ctx))
	assert.False(t, rc.Has(ctx, "b"))
	assert.False(t, rc.Has(ctx, "c"))
	assert.True(t, mr.Exists("other:keep"))
}

func TestNewRedisCache_Errors(t *testing.T) {
	_, err := NewRedisCache(context.Background(), "not a url", "", nil)
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = NewRedisCache(ctx, "redis://"+addr, "", nil)
	assert.Error(t, err)
}

func TestNew_SelectsBackend(t *testing.T) {
	ctx := context.Background()

	c, err := New(ctx, config.CacheConfig{Backend: "memory", MaxSizeMB: 1}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)
	require.NoError(t, c.Close())

	mr := miniredis.RunT(t)
	c, err = New(ctx, config.CacheConfig{Backend: "redis", RedisURL: "redis://" + mr.Addr()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &RedisCache{}, c)
	require.NoError(t, c.Close())

	_, err = New(ctx, config.CacheConfig{Backend: "memcached"}, nil)
	assert.Error(t, err)
}
