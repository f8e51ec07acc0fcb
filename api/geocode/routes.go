package geocode

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/route-planner-api/api/types"
)

// RegisterRoutes registers geocoding routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	// POST /api/v1/geocode
	router.POST("", Post(deps))
}
