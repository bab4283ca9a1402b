package jobs

import (
	"context"
	"time"

	"github.com/killallgit/meeting-recorder/internal/models"
	"gorm.io/gorm"
)

// Service defines the business logic interface for job operations
type Service interface {
	// Enqueue operations
	EnqueueJob(ctx context.Context, jobType models.JobType, payload models.JobPayload, opts ...JobOption) (*models.Job, error)
	// EnqueueUniqueJob inserts at most one row per unique key. created is false
	// when a job with the key already existed and was returned instead.
	EnqueueUniqueJob(ctx context.Context, jobType models.JobType, payload models.JobPayload, uniqueKey string, opts ...JobOption) (job *models.Job, created bool, err error)

	// Status and retrieval
	GetJob(ctx context.Context, jobID uint) (*models.Job, error)
	GetJobByUniqueKey(ctx context.Context, uniqueKey string) (*models.Job, error)
	ListFailedJobs(ctx context.Context, limit int) ([]*models.Job, error)

	// Worker operations (used by worker pool)
	ClaimNextJob(ctx context.Context, workerID string, jobTypes []models.JobType) (*models.Job, error)
	UpdateProgress(ctx context.Context, jobID uint, progress int) error
	CompleteJob(ctx context.Context, jobID uint, result models.JobResult) error
	// FailJob records a failed attempt and returns the job in its new state:
	// failed with a scheduled retry, or permanently_failed.
	FailJob(ctx context.Context, jobID uint, err error) (*models.Job, error)
	ReleaseJob(ctx context.Context, jobID uint) error
	// RecoverStaleJobs releases jobs stuck in processing longer than olderThan.
	// exhausted holds the ones that had no attempt left and will not run again.
	RecoverStaleJobs(ctx context.Context, olderThan time.Duration) (released int64, exhausted []*models.Job, err error)

	// Maintenance
	RetryJob(ctx context.Context, jobID uint) (*models.Job, error)
	CleanupOldJobs(ctx context.Context, retention time.Duration) (int64, error)

	// WithTx returns a Service whose writes join tx
	WithTx(tx *gorm.DB) Service
}

// JobOption is a functional option for configuring jobs
type JobOption func(*jobConfig)

// jobConfig holds configuration for a job
type jobConfig struct {
	Priority         int
	MaxAttempts      int
	Backoff          time.Duration
	Delay            time.Duration
	RemoveOnComplete bool
	CreatedBy        string
}

// WithPriority sets the priority of a job (higher = more priority)
func WithPriority(priority int) JobOption {
	return func(cfg *jobConfig) {
		cfg.Priority = priority
	}
}

// WithMaxAttempts sets how many times the job may run, first run included
func WithMaxAttempts(attempts int) JobOption {
	return func(cfg *jobConfig) {
		cfg.MaxAttempts = attempts
	}
}

// WithBackoff sets the base delay of the exponential retry schedule
func WithBackoff(delay time.Duration) JobOption {
	return func(cfg *jobConfig) {
		cfg.Backoff = delay
	}
}

// WithDelay postpones the first attempt
func WithDelay(delay time.Duration) JobOption {
	return func(cfg *jobConfig) {
		cfg.Delay = delay
	}
}

// WithRemoveOnComplete deletes the row once the job succeeds
func WithRemoveOnComplete() JobOption {
	return func(cfg *jobConfig) {
		cfg.RemoveOnComplete = true
	}
}

// WithCreatedBy sets who created the job
func WithCreatedBy(createdBy string) JobOption {
	return func(cfg *jobConfig) {
		cfg.CreatedBy = createdBy
	}
}
