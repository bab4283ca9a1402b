package livekit

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/meeting-recorder/api/types"
)

// RegisterRoutes registers the webhook endpoint behind the given middleware
func RegisterRoutes(router gin.IRouter, deps *types.Dependencies, middleware ...gin.HandlerFunc) {
	handlers := append(middleware, Receive(deps))
	router.POST("/webhooks/livekit", handlers...)
}
