package analysis

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/meeting-recorder/api/types"
	"github.com/killallgit/meeting-recorder/internal/services/analysis"
	apperrors "github.com/killallgit/meeting-recorder/pkg/errors"
)

// ListPrompts returns the analysis prompt catalog
// @Summary      List analysis prompts
// @Tags         analysis
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} types.PromptsResponse
// @Router       /api/v1/prompts [get]
func ListPrompts(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		types.SendSuccess(c, types.PromptsResponse{Prompts: deps.AnalysisService.ListPrompts()})
	}
}

// RunPrompt runs a catalog prompt against a participant transcript
// @Summary      Run analysis prompt
// @Description  Participants only. Runs synchronously; a failed model call is stored on the run and returned as 502.
// @Tags         analysis
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path string true "Meeting ID"
// @Param        request body analysis.RunPromptRequest true "Audio track and prompt"
// @Success      201 {object} types.PromptRunResponse
// @Failure      400 {object} types.ErrorResponse "Transcription not ready"
// @Failure      403 {object} types.ErrorResponse
// @Failure      404 {object} types.ErrorResponse "Recording, track or prompt not found"
// @Failure      502 {object} types.ErrorResponse "LLM error"
// @Router       /api/v1/meetings/{id}/prompt-runs [post]
func RunPrompt(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req analysis.RunPromptRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}
		req.MeetingID = c.Param("id")
		req.UserID = types.UserID(c)

		run, err := deps.AnalysisService.RunPrompt(c.Request.Context(), req)
		if err != nil {
			apperrors.Respond(c, err)
			return
		}
		types.SendCreated(c, types.PromptRunResponse{Run: run})
	}
}

// ListRuns returns the analysis runs of a meeting, newest first
// @Summary      List analysis runs
// @Tags         analysis
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "Meeting ID"
// @Success      200 {object} types.PromptRunsResponse
// @Failure      403 {object} types.ErrorResponse
// @Failure      404 {object} types.ErrorResponse
// @Router       /api/v1/meetings/{id}/prompt-runs [get]
func ListRuns(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		runs, err := deps.AnalysisService.ListRuns(c.Request.Context(), c.Param("id"), types.UserID(c))
		if err != nil {
			apperrors.Respond(c, err)
			return
		}
		types.SendSuccess(c, types.PromptRunsResponse{Runs: runs, Count: len(runs)})
	}
}
