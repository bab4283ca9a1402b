package jobs

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/meeting-recorder/api/types"
)

// RegisterRoutes registers queue inspection routes under an authenticated group
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	group := router.Group("/jobs")
	group.GET("/failed", ListFailed(deps))
	group.POST("/:id/retry", Retry(deps))
}
