package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/route-planner-api/api/types"
)

// RegisterRoutes registers route search routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.POST("", Post(deps))
	router.GET("", List(deps))
	router.GET("/:id", Get(deps))
	router.DELETE("/:id", Delete(deps))
}
