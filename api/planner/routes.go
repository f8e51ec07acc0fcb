package planner

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the planner WebSocket endpoint
func RegisterRoutes(router *gin.RouterGroup, hub *Hub) {
	router.GET("/ws", hub.ServeWS)
}
