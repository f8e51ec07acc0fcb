package categories

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers categories routes
func RegisterRoutes(router *gin.RouterGroup) {
	// GET /api/v1/categories
	router.GET("", Get())
}
