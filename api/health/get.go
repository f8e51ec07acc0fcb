package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/route-planner-api/api/types"
	"github.com/killallgit/route-planner-api/internal/services/cache"
)

// pinger is implemented by caches backed by a remote server
type pinger interface {
	Ping(ctx context.Context) error
}

// Get handles health check requests
// @Summary      Health check
// @Description  Reports the status of the database, the geocoding cache and the worker pool
// @Tags         health
// @Produce      json
// @Success      200 {object} types.HealthResponse
// @Failure      503 {object} types.HealthResponse "Database unavailable"
// @Router       /health [get]
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		response := types.HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Services:  map[string]any{},
		}

		db := getDatabaseStatus(deps)
		response.Services["database"] = db
		if db["status"] == "unhealthy" {
			status = http.StatusServiceUnavailable
			response.Status = "unhealthy"
		}

		cacheStatus := getCacheStatus(c.Request.Context(), deps)
		response.Services["cache"] = cacheStatus
		if cacheStatus["status"] == "unhealthy" && response.Status == "ok" {
			response.Status = "degraded"
		}

		if deps != nil && deps.WorkerPool != nil {
			response.Services["workers"] = gin.H{"status": "running", "count": deps.WorkerPool.Size()}
		} else {
			response.Services["workers"] = gin.H{"status": "not configured"}
		}

		c.JSON(status, response)
	}
}

// getDatabaseStatus returns the database connection status
func getDatabaseStatus(deps *types.Dependencies) gin.H {
	if deps == nil || deps.DB == nil || deps.DB.DB == nil {
		return gin.H{"status": "not configured"}
	}

	if err := deps.DB.HealthCheck(); err != nil {
		return gin.H{"status": "unhealthy", "error": err.Error()}
	}

	return gin.H{"status": "healthy"}
}

func getCacheStatus(ctx context.Context, deps *types.Dependencies) gin.H {
	if deps == nil || deps.Cache == nil {
		return gin.H{"status": "not configured"}
	}

	out := gin.H{"status": "healthy"}
	if p, ok := deps.Cache.(pinger); ok {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			return gin.H{"status": "unhealthy", "error": err.Error()}
		}
	}
	if sp, ok := deps.Cache.(cache.StatsProvider); ok {
		out["stats"] = sp.Stats()
	}
	return out
}
