package recordings

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/meeting-recorder/api/types"
)

// RegisterRoutes registers recording management routes under an authenticated group
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	meetings := router.Group("/meetings/:id")
	{
		meetings.POST("/recording/start", StartRecording(deps))
		meetings.POST("/recording/stop", StopRecording(deps))
		meetings.GET("/recording", GetMeetingRecording(deps))
		meetings.POST("/end", EndMeeting(deps))
		meetings.GET("/tracks/:trackId/transcript", GetTrackTranscript(deps))
	}

	recs := router.Group("/recordings")
	{
		recs.GET("/:id/url", SignedURL(deps))
		recs.DELETE("/:id", DeleteRecording(deps))
	}
}
