package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PromptRunStatus is the lifecycle of one analysis run
type PromptRunStatus string

const (
	PromptRunStatusPending    PromptRunStatus = "pending"
	PromptRunStatusProcessing PromptRunStatus = "processing"
	PromptRunStatusCompleted  PromptRunStatus = "completed"
	PromptRunStatusFailed     PromptRunStatus = "failed"
)

// PromptRun records a single LLM prompt executed against a track transcript.
// Reruns insert new rows; a row only ever moves once to a terminal status.
type PromptRun struct {
	ID              string          `json:"id" gorm:"primaryKey;size:36"`
	RecordingID     string          `json:"recording_id" gorm:"size:36;not null;index"`
	AudioTrackID    string          `json:"audio_track_id" gorm:"size:36;not null;index"`
	UserID          string          `json:"user_id" gorm:"size:64;not null;index"`
	PromptID        string          `json:"prompt_id" gorm:"size:64;not null"`
	PromptTitle     string          `json:"prompt_title"`
	PromptText      string          `json:"prompt_text" gorm:"type:text"`
	ParticipantName string          `json:"participant_name"`
	TranscriptText  string          `json:"transcript_text" gorm:"type:text"`
	Result          *string         `json:"result" gorm:"type:text"`
	Error           *string         `json:"error"`
	Status          PromptRunStatus `json:"status" gorm:"size:16;not null;default:'pending'"`
	CreatedAt       time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// BeforeCreate assigns a UUID primary key
func (p *PromptRun) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// IdempotencyKey is a short-lived lease on a side effect identified by a natural key
type IdempotencyKey struct {
	Key       string    `gorm:"primaryKey;size:255"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}

// TableName specifies the table name for GORM
func (IdempotencyKey) TableName() string {
	return "idempotency_keys"
}
