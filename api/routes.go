package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/killallgit/route-planner-api/api/categories"
	"github.com/killallgit/route-planner-api/api/geocode"
	"github.com/killallgit/route-planner-api/api/health"
	"github.com/killallgit/route-planner-api/api/middleware"
	"github.com/killallgit/route-planner-api/api/planner"
	"github.com/killallgit/route-planner-api/api/routes"
	"github.com/killallgit/route-planner-api/api/types"
	"github.com/killallgit/route-planner-api/api/version"
	_ "github.com/killallgit/route-planner-api/docs/swagger"
	"github.com/killallgit/route-planner-api/pkg/config"
)

const categoriesCacheTTL = time.Hour

// RegisterRoutes registers all API routes
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies, rl *RateLimiter, hub *planner.Hub) error {
	// Public routes, no rate limiting
	health.RegisterRoutes(engine, deps)
	version.RegisterRoutes(engine)

	engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/docs/index.html")
	})
	engine.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	engine.NoRoute(NotFoundHandler())

	limits := config.RateLimitConfig{}
	if deps.Config != nil {
		limits = deps.Config.RateLimiting
	}
	limit := func(name string) gin.HandlerFunc {
		if !limits.Enabled {
			return func(c *gin.Context) { c.Next() }
		}
		l, ok := limits.Endpoints[name]
		if !ok {
			l = limits.Endpoints["default"]
		}
		return rl.PerClientRateLimit(name, l)
	}

	v1 := engine.Group("/api/v1")

	geocodeGroup := v1.Group("/geocode")
	geocodeGroup.Use(limit("geocode"))
	geocode.RegisterRoutes(geocodeGroup, deps)

	categoriesGroup := v1.Group("/categories")
	categoriesGroup.Use(limit("default"), middleware.CacheMiddleware(middleware.CacheConfig{
		Cache:      deps.Cache,
		DefaultTTL: categoriesCacheTTL,
		Enabled:    deps.Cache != nil,
	}))
	categories.RegisterRoutes(categoriesGroup)

	// Route searches need the job queue behind them
	if deps.RouteService != nil {
		routesGroup := v1.Group("/routes")
		routesGroup.Use(limit("routes"))
		routes.RegisterRoutes(routesGroup, deps)
	}

	plannerGroup := v1.Group("/planner")
	plannerGroup.Use(limit("planner"))
	planner.RegisterRoutes(plannerGroup, hub)

	return nil
}

// NotFoundHandler handles 404 errors
func NotFoundHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"status":  types.StatusError,
			"message": "The requested endpoint was not found",
			"path":    c.Request.URL.Path,
		})
	}
}
