package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/killallgit/route-planner-api/pkg/config"
)

// New builds the cache backend selected by cache.backend
func New(ctx context.Context, cfg config.CacheConfig, log *slog.Logger) (Cache, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryCache(cfg.MaxSizeMB), nil
	case "redis":
		return NewRedisCache(ctx, cfg.RedisURL, cfg.KeyPrefix, log)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
