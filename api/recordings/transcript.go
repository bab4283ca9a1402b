package recordings

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/meeting-recorder/api/types"
	"github.com/killallgit/meeting-recorder/internal/models"
	apperrors "github.com/killallgit/meeting-recorder/pkg/errors"
	"github.com/killallgit/meeting-recorder/pkg/transcript"
)

// GetTrackTranscript downloads the transcript of one speaker
// @Summary      Download speaker transcript
// @Description  Participants only. Renders a completed track transcription as plain text, WebVTT, SRT or JSON.
// @Tags         recordings
// @Security     BearerAuth
// @Produce      plain
// @Param        id       path  string true  "Meeting ID"
// @Param        trackId  path  string true  "Audio track ID"
// @Param        format   query string false "text, vtt, srt or json" default(text)
// @Success      200 {string} string
// @Failure      400 {object} types.ErrorResponse "Unknown format"
// @Failure      403 {object} types.ErrorResponse
// @Failure      404 {object} types.ErrorResponse
// @Failure      409 {object} types.ErrorResponse "Transcription not completed"
// @Router       /api/v1/meetings/{id}/tracks/{trackId}/transcript [get]
func GetTrackTranscript(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		format, err := transcript.ParseFormat(c.Query("format"))
		if err != nil {
			apperrors.Respond(c, apperrors.ValidationError("format", err.Error()))
			return
		}

		track, err := deps.RecordingService.GetTrackTranscript(c.Request.Context(), c.Param("id"), c.Param("trackId"), types.UserID(c))
		if err != nil {
			apperrors.Respond(c, err)
			return
		}

		var buf bytes.Buffer
		if err := toTranscript(track).Write(&buf, format); err != nil {
			apperrors.Respond(c, err)
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, transcriptFilename(track), format.Extension()))
		c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
	}
}

func toTranscript(track *models.ParticipantAudioTrack) *transcript.Transcript {
	t := &transcript.Transcript{Speaker: track.ParticipantName}
	if t.Speaker == "" {
		t.Speaker = track.ParticipantIdentity
	}
	for _, s := range track.Transcription.Segments {
		t.Segments = append(t.Segments, transcript.Segment{
			Start: transcript.Seconds(s.Start),
			End:   transcript.Seconds(s.End),
			Text:  s.Text,
		})
	}
	return t
}

// transcriptFilename keeps header-safe characters of the speaker identity
func transcriptFilename(track *models.ParticipantAudioTrack) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, track.ParticipantIdentity)
	if name == "" {
		name = track.ID
	}
	return "transcript-" + name
}
