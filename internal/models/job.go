package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// JobStatus represents the status of a job in the queue
type JobStatus string

const (
	JobStatusPending           JobStatus = "pending"
	JobStatusProcessing        JobStatus = "processing"
	JobStatusCompleted         JobStatus = "completed"
	JobStatusFailed            JobStatus = "failed" // waiting for its next attempt
	JobStatusPermanentlyFailed JobStatus = "permanently_failed"
	JobStatusCancelled         JobStatus = "cancelled"
)

// JobType represents the type of job to be processed
type JobType string

const (
	JobTypeTranscription JobType = "transcription"
)

// JobErrorType represents the category of error that occurred
type JobErrorType string

const (
	ErrorTypeDownload   JobErrorType = "download"   // artifact could not be fetched from storage
	ErrorTypeProcessing JobErrorType = "processing" // ffmpeg or speech-to-text failed
	ErrorTypeSystem     JobErrorType = "system"     // database, worker, or other system error
	ErrorTypeNotFound   JobErrorType = "not_found"  // resource permanently gone, no retry
)

// StructuredJobError represents a structured error with classification information
type StructuredJobError struct {
	Type     JobErrorType
	Code     string
	Message  string
	Details  string
	Original error
}

func (e *StructuredJobError) Error() string {
	return e.Message
}

func (e *StructuredJobError) Unwrap() error {
	return e.Original
}

// NewDownloadError creates a download-related structured error
func NewDownloadError(code, message, details string, originalErr error) *StructuredJobError {
	return &StructuredJobError{Type: ErrorTypeDownload, Code: code, Message: message, Details: details, Original: originalErr}
}

// NewProcessingError creates a processing-related structured error
func NewProcessingError(code, message, details string, originalErr error) *StructuredJobError {
	return &StructuredJobError{Type: ErrorTypeProcessing, Code: code, Message: message, Details: details, Original: originalErr}
}

// NewSystemError creates a system-related structured error
func NewSystemError(code, message, details string, originalErr error) *StructuredJobError {
	return &StructuredJobError{Type: ErrorTypeSystem, Code: code, Message: message, Details: details, Original: originalErr}
}

// NewNotFoundError creates a not-found error that results in permanent failure
func NewNotFoundError(code, message, details string, originalErr error) *StructuredJobError {
	return &StructuredJobError{Type: ErrorTypeNotFound, Code: code, Message: message, Details: details, Original: originalErr}
}

// Job represents a background job in the queue
type Job struct {
	gorm.Model
	Type             JobType       `json:"type" gorm:"not null;index:idx_jobs_type_status"`
	Status           JobStatus     `json:"status" gorm:"default:'pending';index:idx_jobs_type_status;index:idx_jobs_status_priority"`
	Payload          JobPayload    `json:"payload" gorm:"type:json"`
	UniqueKey        *string       `json:"unique_key,omitempty" gorm:"size:255;uniqueIndex"`
	Priority         int           `json:"priority" gorm:"default:0;index:idx_jobs_status_priority"`
	MaxAttempts      int           `json:"max_attempts" gorm:"default:3"`
	Attempts         int           `json:"attempts" gorm:"default:0"` // incremented on every claim
	BackoffDelay     time.Duration `json:"backoff_delay"`
	RemoveOnComplete bool          `json:"remove_on_complete"`
	AvailableAt      time.Time     `json:"available_at" gorm:"index"`
	Progress         int           `json:"progress" gorm:"default:0"` // 0-100
	StartedAt        *time.Time    `json:"started_at"`
	CompletedAt      *time.Time    `json:"completed_at"`
	LastFailedAt     *time.Time    `json:"last_failed_at"`
	Error            string        `json:"error,omitempty"`
	Result           JobResult     `json:"result,omitempty" gorm:"type:json"`
	WorkerID         string        `json:"worker_id,omitempty"`

	// Error classification fields
	ErrorType    string `json:"error_type,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorDetails string `json:"error_details,omitempty"`

	CreatedBy string `json:"created_by,omitempty"`
}

// JobPayload represents the input data for a job
type JobPayload map[string]interface{}

// Value implements driver.Valuer interface for JobPayload
func (p JobPayload) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner interface for JobPayload
func (p *JobPayload) Scan(value interface{}) error {
	raw, err := jsonBytes(value)
	if err != nil || raw == nil {
		*p = make(JobPayload)
		return err
	}
	return json.Unmarshal(raw, p)
}

// JobResult represents the output data from a completed job
type JobResult map[string]interface{}

// Value implements driver.Valuer interface for JobResult
func (r JobResult) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner interface for JobResult
func (r *JobResult) Scan(value interface{}) error {
	raw, err := jsonBytes(value)
	if err != nil || raw == nil {
		*r = make(JobResult)
		return err
	}
	return json.Unmarshal(raw, r)
}

func jsonBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("type assertion to []byte failed")
	}
}

// Helper methods

// IsRetryable returns true if the job is waiting for another attempt
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.Attempts < j.MaxAttempts
}

// IsFinalAttempt reports whether the current attempt is the last one the queue will make
func (j *Job) IsFinalAttempt() bool {
	return j.Attempts >= j.MaxAttempts
}

// NextBackoff returns the exponential delay before the attempt after the current one
func (j *Job) NextBackoff() time.Duration {
	if j.BackoffDelay <= 0 || j.Attempts <= 0 {
		return j.BackoffDelay
	}
	return j.BackoffDelay * time.Duration(1<<uint(j.Attempts-1))
}

// IsTerminal returns true if the job is in a terminal state
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted ||
		j.Status == JobStatusCancelled ||
		j.Status == JobStatusPermanentlyFailed
}

// DecodePayload copies the payload into a typed struct
func (j *Job) DecodePayload(dst interface{}) error {
	raw, err := json.Marshal(j.Payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}
	return nil
}

// TableName specifies the table name for GORM
func (Job) TableName() string {
	return "jobs"
}

// TranscriptionJob is the payload of a transcription queue entry
type TranscriptionJob struct {
	AudioTrackID        string `json:"audioTrackId"`
	MeetingID           string `json:"meetingId"`
	RecordingID         string `json:"recordingId"`
	ParticipantIdentity string `json:"participantIdentity"`
	ParticipantName     string `json:"participantName"`
	FilePath            string `json:"filePath"`
}

// Payload converts the descriptor into a queue payload
func (t TranscriptionJob) Payload() JobPayload {
	return JobPayload{
		"audioTrackId":        t.AudioTrackID,
		"meetingId":           t.MeetingID,
		"recordingId":         t.RecordingID,
		"participantIdentity": t.ParticipantIdentity,
		"participantName":     t.ParticipantName,
		"filePath":            t.FilePath,
	}
}

// UniqueKey is the queue de-duplication key for a track
func (t TranscriptionJob) UniqueKey() string {
	return "transcription:" + t.AudioTrackID
}
