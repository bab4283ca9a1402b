package analysis

import (
	"context"

	"github.com/killallgit/meeting-recorder/internal/models"
	"gorm.io/gorm"
)

// Repository persists prompt runs
type Repository interface {
	CreateRun(ctx context.Context, run *models.PromptRun) error
	// FinishRun moves a processing run to completed or failed exactly once
	FinishRun(ctx context.Context, id string, status models.PromptRunStatus, result, errMsg *string) (bool, error)
	GetRun(ctx context.Context, id string) (*models.PromptRun, error)
	ListRunsByRecording(ctx context.Context, recordingID string) ([]models.PromptRun, error)

	WithTx(tx *gorm.DB) Repository
}

// Service runs catalog prompts against participant transcripts
type Service interface {
	RunPrompt(ctx context.Context, req RunPromptRequest) (*models.PromptRun, error)
	ListRuns(ctx context.Context, meetingID, userID string) ([]models.PromptRun, error)
	ListPrompts() []Prompt
}

// RunPromptRequest identifies the transcript and prompt of one run
type RunPromptRequest struct {
	MeetingID    string `json:"-"`
	AudioTrackID string `json:"audio_track_id" binding:"required"`
	PromptID     string `json:"prompt_id" binding:"required"`
	UserID       string `json:"-"`
}

// Prompt is one entry of the catalog
type Prompt struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Analysis call settings
const (
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 2000

	transcriptPreamble = "Here is the transcript:\n\n"
)
