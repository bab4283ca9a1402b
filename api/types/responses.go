package types

import (
	"github.com/killallgit/meeting-recorder/internal/models"
	"github.com/killallgit/meeting-recorder/internal/services/analysis"
)

// Status constants for API responses
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// WebhookAck acknowledges a webhook delivery
type WebhookAck struct {
	Received bool `json:"received" example:"true"`
}

// HealthResponse for health check endpoint
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Database  map[string]interface{} `json:"database"`
	Workers   map[string]interface{} `json:"workers,omitempty"`
}

// RecordingResponse wraps one recording
type RecordingResponse struct {
	Recording *models.Recording `json:"recording"`
}

// PromptsResponse lists the analysis prompt catalog
type PromptsResponse struct {
	Prompts []analysis.Prompt `json:"prompts"`
}

// PromptRunResponse wraps one analysis run
type PromptRunResponse struct {
	Run *models.PromptRun `json:"run"`
}

// PromptRunsResponse lists analysis runs, newest first
type PromptRunsResponse struct {
	Runs  []models.PromptRun `json:"runs"`
	Count int                `json:"count"`
}

// JobsResponse lists queue jobs
type JobsResponse struct {
	Jobs  []*models.Job `json:"jobs"`
	Count int           `json:"count"`
}

// JobResponse wraps one queue job
type JobResponse struct {
	Job *models.Job `json:"job"`
}
