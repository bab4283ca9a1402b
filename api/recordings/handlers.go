package recordings

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/meeting-recorder/api/types"
	apperrors "github.com/killallgit/meeting-recorder/pkg/errors"
)

// StartRecording starts the composite recording of a meeting
// @Summary      Start meeting recording
// @Description  Host only. Starts the room composite egress for the meeting.
// @Tags         recordings
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Meeting ID"
// @Success      201 {object} types.RecordingResponse
// @Failure      403 {object} types.ErrorResponse "Not the host"
// @Failure      404 {object} types.ErrorResponse "Meeting not found"
// @Failure      409 {object} types.ErrorResponse "Already recording or meeting ended"
// @Failure      502 {object} types.ErrorResponse "Egress service error"
// @Router       /api/v1/meetings/{id}/recording/start [post]
func StartRecording(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := deps.RecordingService.StartRecording(c.Request.Context(), c.Param("id"), types.UserID(c))
		if err != nil {
			apperrors.Respond(c, err)
			return
		}
		types.SendCreated(c, types.RecordingResponse{Recording: rec})
	}
}

// StopRecording stops the composite recording of a meeting
// @Summary      Stop meeting recording
// @Description  Host only. Stops the composite egress; the recording becomes ready once the egress reports its file.
// @Tags         recordings
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Meeting ID"
// @Success      200 {object} types.RecordingResponse
// @Failure      403 {object} types.ErrorResponse
// @Failure      404 {object} types.ErrorResponse
// @Failure      409 {object} types.ErrorResponse "Not recording"
// @Router       /api/v1/meetings/{id}/recording/stop [post]
func StopRecording(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := deps.RecordingService.StopRecording(c.Request.Context(), c.Param("id"), types.UserID(c))
		if err != nil {
			apperrors.Respond(c, err)
			return
		}
		types.SendSuccess(c, types.RecordingResponse{Recording: rec})
	}
}

// GetMeetingRecording returns the recording of a meeting with its audio tracks
// @Summary      Get meeting recording
// @Description  Participants only. Includes per-participant tracks with their transcription and, when ready, a download URL.
// @Tags         recordings
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Meeting ID"
// @Success      200 {object} recordings.MeetingRecording
// @Failure      403 {object} types.ErrorResponse
// @Failure      404 {object} types.ErrorResponse
// @Router       /api/v1/meetings/{id}/recording [get]
func GetMeetingRecording(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := deps.RecordingService.GetMeetingRecording(c.Request.Context(), c.Param("id"), types.UserID(c))
		if err != nil {
			apperrors.Respond(c, err)
			return
		}
		types.SendSuccess(c, out)
	}
}

// EndMeeting ends a meeting and stops its recording
// @Summary      End meeting
// @Tags         meetings
// @Security     BearerAuth
// @Param        id path string true "Meeting ID"
// @Success      204
// @Failure      403 {object} types.ErrorResponse
// @Failure      404 {object} types.ErrorResponse
// @Router       /api/v1/meetings/{id}/end [post]
func EndMeeting(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := deps.RecordingService.EndMeeting(c.Request.Context(), c.Param("id"), types.UserID(c)); err != nil {
			apperrors.Respond(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// SignedURL returns a presigned download link for a ready recording
// @Summary      Get recording download URL
// @Tags         recordings
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Recording ID"
// @Success      200 {object} recordings.SignedURL
// @Failure      403 {object} types.ErrorResponse
// @Failure      404 {object} types.ErrorResponse
// @Failure      409 {object} types.ErrorResponse "Recording not ready"
// @Router       /api/v1/recordings/{id}/url [get]
func SignedURL(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := deps.RecordingService.SignedURL(c.Request.Context(), c.Param("id"), types.UserID(c))
		if err != nil {
			apperrors.Respond(c, err)
			return
		}
		types.SendSuccess(c, out)
	}
}

// DeleteRecording removes a recording, its tracks and their stored files
// @Summary      Delete recording
// @Tags         recordings
// @Security     BearerAuth
// @Param        id path string true "Recording ID"
// @Success      204
// @Failure      403 {object} types.ErrorResponse
// @Failure      404 {object} types.ErrorResponse
// @Failure      409 {object} types.ErrorResponse "Recording still in progress"
// @Router       /api/v1/recordings/{id} [delete]
func DeleteRecording(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := deps.RecordingService.DeleteRecording(c.Request.Context(), c.Param("id"), types.UserID(c)); err != nil {
			apperrors.Respond(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
