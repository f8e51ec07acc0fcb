// Package middleware holds HTTP middleware that needs service dependencies
package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/route-planner-api/internal/services/cache"
)

const cacheKeyPrefix = "http:"

// CacheConfig holds configuration for cache middleware
type CacheConfig struct {
	Cache      cache.Cache
	DefaultTTL time.Duration
	TTLByPath  map[string]time.Duration // Path-specific TTLs
	Enabled    bool
}

// responseWriter captures response for caching
type responseWriter struct {
	gin.ResponseWriter
	body   *bytes.Buffer
	status int
}

func (w *responseWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *responseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// CachedResponse represents a cached HTTP response
type CachedResponse struct {
	Status      int       `json:"status"`
	ContentType string    `json:"content_type"`
	Body        []byte    `json:"body"`
	CachedAt    time.Time `json:"cached_at"`
	ETag        string    `json:"etag"`
}

// CacheMiddleware serves repeated GET requests from the cache. Successful
// responses are stored under a key built from the path and sorted query.
func CacheMiddleware(config CacheConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !config.Enabled || config.Cache == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		if shouldBypassCache(c.Request) {
			c.Header("X-Cache", "BYPASS")
			c.Next()
			return
		}

		key := generateCacheKey(c.Request)
		ctx := c.Request.Context()

		if data, found := config.Cache.Get(ctx, key); found {
			if response, err := parseCachedResponse(data); err == nil {
				c.Header("X-Cache", "HIT")
				c.Header("Age", strconv.Itoa(int(time.Since(response.CachedAt).Seconds())))
				c.Header("ETag", response.ETag)

				if match := c.GetHeader("If-None-Match"); match != "" && match == response.ETag {
					c.AbortWithStatus(http.StatusNotModified)
					return
				}

				c.Data(response.Status, response.ContentType, response.Body)
				c.Abort()
				return
			}
		}

		c.Header("X-Cache", "MISS")

		w := &responseWriter{
			ResponseWriter: c.Writer,
			body:           bytes.NewBuffer(nil),
			status:         http.StatusOK,
		}
		c.Writer = w

		c.Next()

		if w.status != http.StatusOK || w.body.Len() == 0 {
			return
		}

		response := CachedResponse{
			Status:      w.status,
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
			CachedAt:    time.Now(),
			ETag:        generateETag(w.body.Bytes()),
		}

		if data, err := serializeCachedResponse(response); err == nil {
			// the request context may already be cancelled once the body is written
			storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
			_ = config.Cache.Set(storeCtx, key, data, ttlFor(config, c.Request.URL.Path))
			cancel()
		}
	}
}

func ttlFor(config CacheConfig, path string) time.Duration {
	if ttl, ok := config.TTLByPath[path]; ok {
		return ttl
	}
	// longest matching prefix wins
	best, ttl := -1, config.DefaultTTL
	for prefix, pathTTL := range config.TTLByPath {
		if strings.HasPrefix(path, prefix) && len(prefix) > best {
			best, ttl = len(prefix), pathTTL
		}
	}
	return ttl
}

// shouldBypassCache checks if cache should be bypassed based on request headers
func shouldBypassCache(req *http.Request) bool {
	if req.Header.Get("Pragma") == "no-cache" {
		return true
	}

	for _, directive := range strings.Split(strings.ToLower(req.Header.Get("Cache-Control")), ",") {
		switch strings.TrimSpace(directive) {
		case "no-cache", "no-store", "max-age=0":
			return true
		}
	}
	return false
}

// generateCacheKey creates a unique key for the request
func generateCacheKey(req *http.Request) string {
	parts := []string{req.URL.Path}

	if req.URL.RawQuery != "" {
		params := req.URL.Query()
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			for _, v := range params[k] {
				parts = append(parts, fmt.Sprintf("%s=%s", k, v))
			}
		}
	}

	return cacheKeyPrefix + strings.Join(parts, ":")
}

// generateETag creates an ETag for the response body
func generateETag(body []byte) string {
	hash := sha256.Sum256(body)
	return fmt.Sprintf(`"%s"`, hex.EncodeToString(hash[:8]))
}

func serializeCachedResponse(response CachedResponse) ([]byte, error) {
	return json.Marshal(response)
}

func parseCachedResponse(data []byte) (*CachedResponse, error) {
	var response CachedResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("invalid cached response: %w", err)
	}
	if response.Status == 0 {
		return nil, fmt.Errorf("invalid cached response: missing status")
	}
	return &response, nil
}
