package analysis

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/meeting-recorder/api/types"
)

// RegisterRoutes registers analysis routes under an authenticated group
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.GET("/prompts", ListPrompts(deps))
	router.POST("/meetings/:id/prompt-runs", RunPrompt(deps))
	router.GET("/meetings/:id/prompt-runs", ListRuns(deps))
}
