package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/route-planner-api/internal/services/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCachedRouter(t *testing.T, enabled bool) (*gin.Engine, *int) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mc := cache.NewMemoryCache(1)
	t.Cleanup(func() { _ = mc.Close() })

	calls := 0
	router := gin.New()
	router.Use(CacheMiddleware(CacheConfig{
		Cache:      mc,
		DefaultTTL: time.Minute,
		Enabled:    enabled,
	}))
	router.GET("/categories", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"count": 5})
	})
	router.GET("/missing", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusNotFound, gin.H{"status": "error"})
	})
	return router, &calls
}

func get(router *gin.Engine, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCacheMiddleware(t *testing.T) {
	router, calls := setupCachedRouter(t, true)

	first := get(router, "/categories", nil)
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := get(router, "/categories", nil)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", second.Header().Get("Content-Type"))
	assert.Equal(t, 1, *calls)

	etag := second.Header().Get("ETag")
	require.NotEmpty(t, etag)
	notModified := get(router, "/categories", map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, notModified.Code)

	bypass := get(router, "/categories", map[string]string{"Cache-Control": "no-cache"})
	assert.Equal(t, "BYPASS", bypass.Header().Get("X-Cache"))
	assert.Equal(t, 2, *calls)
}

func TestCacheMiddleware_SkipsErrorsAndDisabled(t *testing.T) {
	router, calls := setupCachedRouter(t, true)
	get(router, "/missing", nil)
	w := get(router, "/missing", nil)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Equal(t, 2, *calls)

	disabled, disabledCalls := setupCachedRouter(t, false)
	get(disabled, "/categories", nil)
	w = get(disabled, "/categories", nil)
	assert.Empty(t, w.Header().Get("X-Cache"))
	assert.Equal(t, 2, *disabledCalls)
}

func TestShouldBypassCache(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		expected bool
	}{
		{"no headers", nil, false},
		{"no-cache", map[string]string{"Cache-Control": "no-cache"}, true},
		{"no-store among others", map[string]string{"Cache-Control": "private, no-store"}, true},
		{"max-age zero", map[string]string{"Cache-Control": "max-age=0"}, true},
		{"max-age positive", map[string]string{"Cache-Control": "max-age=60"}, false},
		{"pragma", map[string]string{"Pragma": "no-cache"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.expected, shouldBypassCache(req))
		})
	}
}

func TestGenerateCacheKey(t *testing.T) {
	a := httptest.NewRequest(http.MethodGet, "/api/v1/routes?limit=5&status=completed", nil)
	b := httptest.NewRequest(http.MethodGet, "/api/v1/routes?status=completed&limit=5", nil)
	assert.Equal(t, generateCacheKey(a), generateCacheKey(b))
	assert.Equal(t, "http:/api/v1/routes:limit=5:status=completed", generateCacheKey(a))
}

func TestTTLFor(t *testing.T) {
	cfg := CacheConfig{
		DefaultTTL: time.Minute,
		TTLByPath: map[string]time.Duration{
			"/api/v1":            time.Hour,
			"/api/v1/categories": 24 * time.Hour,
		},
	}
	assert.Equal(t, 24*time.Hour, ttlFor(cfg, "/api/v1/categories"))
	assert.Equal(t, time.Hour, ttlFor(cfg, "/api/v1/routes"))
	assert.Equal(t, time.Minute, ttlFor(cfg, "/health"))
}
