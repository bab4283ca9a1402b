package jobs

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/meeting-recorder/api/types"
	"github.com/killallgit/meeting-recorder/internal/services/jobs"
	apperrors "github.com/killallgit/meeting-recorder/pkg/errors"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// ListFailed returns retained failed and permanently failed jobs
// @Summary      List failed jobs
// @Tags         jobs
// @Security     BearerAuth
// @Produce      json
// @Param        limit query int false "Maximum number of jobs" default(50)
// @Success      200 {object} types.JobsResponse
// @Router       /api/v1/jobs/failed [get]
func ListFailed(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				apperrors.Respond(c, apperrors.ValidationError("limit", "must be a positive integer"))
				return
			}
			limit = min(n, maxLimit)
		}

		list, err := deps.JobService.ListFailedJobs(c.Request.Context(), limit)
		if err != nil {
			apperrors.Respond(c, apperrors.DatabaseError("list failed jobs", err))
			return
		}
		types.SendSuccess(c, types.JobsResponse{Jobs: list, Count: len(list)})
	}
}

// Retry resets a failed job so a worker picks it up again
// @Summary      Retry failed job
// @Tags         jobs
// @Security     BearerAuth
// @Produce      json
// @Param        id path int true "Job ID"
// @Success      200 {object} types.JobResponse
// @Failure      404 {object} types.ErrorResponse
// @Failure      409 {object} types.ErrorResponse "Job is not failed"
// @Router       /api/v1/jobs/{id}/retry [post]
func Retry(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := types.ParseUintParam(c, "id")
		if !ok {
			return
		}

		job, err := deps.JobService.RetryJob(c.Request.Context(), id)
		switch {
		case errors.Is(err, jobs.ErrJobNotFound):
			apperrors.Respond(c, apperrors.NotFound("job", id))
		case errors.Is(err, jobs.ErrJobNotRetryable):
			apperrors.Respond(c, apperrors.Conflict(err.Error()))
		case err != nil:
			apperrors.Respond(c, apperrors.DatabaseError("retry job", err))
		default:
			types.SendSuccess(c, types.JobResponse{Job: job})
		}
	}
}
