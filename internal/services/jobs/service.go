package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/killallgit/meeting-recorder/internal/models"
	"gorm.io/gorm"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = 5 * time.Second
	DefaultPriority    = 0
)

// Defaults are applied to every enqueued job before its options
type Defaults struct {
	MaxAttempts int
	Backoff     time.Duration
}

type service struct {
	repo     Repository
	defaults Defaults
}

func NewService(repo Repository, defaults Defaults) Service {
	if defaults.MaxAttempts <= 0 {
		defaults.MaxAttempts = DefaultMaxAttempts
	}
	if defaults.Backoff <= 0 {
		defaults.Backoff = DefaultBackoff
	}
	return &service{
		repo:     repo,
		defaults: defaults,
	}
}

func (s *service) WithTx(tx *gorm.DB) Service {
	return &service{repo: s.repo.WithTx(tx), defaults: s.defaults}
}

func (s *service) buildJob(jobType models.JobType, payload models.JobPayload, opts []JobOption) *models.Job {
	cfg := &jobConfig{
		Priority:    DefaultPriority,
		MaxAttempts: s.defaults.MaxAttempts,
		Backoff:     s.defaults.Backoff,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &models.Job{
		Type:             jobType,
		Status:           models.JobStatusPending,
		Payload:          payload,
		Priority:         cfg.Priority,
		MaxAttempts:      cfg.MaxAttempts,
		BackoffDelay:     cfg.Backoff,
		RemoveOnComplete: cfg.RemoveOnComplete,
		AvailableAt:      now().Add(cfg.Delay),
		CreatedBy:        cfg.CreatedBy,
	}
}

func (s *service) EnqueueJob(ctx context.Context, jobType models.JobType, payload models.JobPayload, opts ...JobOption) (*models.Job, error) {
	job := s.buildJob(jobType, payload, opts)

	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}

	slog.DebugContext(ctx, "Enqueued job", "job_id", job.ID, "type", jobType, "priority", job.Priority)
	return job, nil
}

func (s *service) EnqueueUniqueJob(ctx context.Context, jobType models.JobType, payload models.JobPayload, uniqueKey string, opts ...JobOption) (*models.Job, bool, error) {
	if uniqueKey == "" {
		return nil, false, fmt.Errorf("unique key is required")
	}

	job := s.buildJob(jobType, payload, opts)
	job.UniqueKey = &uniqueKey

	created, err := s.repo.CreateJobIfAbsent(ctx, job)
	if err != nil {
		return nil, false, err
	}
	if created {
		slog.DebugContext(ctx, "Enqueued unique job", "job_id", job.ID, "type", jobType, "unique_key", uniqueKey)
		return job, true, nil
	}

	existing, err := s.repo.GetJobByUniqueKey(ctx, uniqueKey)
	if err != nil {
		return nil, false, fmt.Errorf("loading existing job: %w", err)
	}
	slog.DebugContext(ctx, "Job already exists",
		"job_id", existing.ID, "type", jobType, "unique_key", uniqueKey, "status", existing.Status)
	return existing, false, nil
}

func (s *service) GetJob(ctx context.Context, jobID uint) (*models.Job, error) {
	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("getting job: %w", err)
	}
	return job, nil
}

func (s *service) GetJobByUniqueKey(ctx context.Context, uniqueKey string) (*models.Job, error) {
	return s.repo.GetJobByUniqueKey(ctx, uniqueKey)
}

func (s *service) ListFailedJobs(ctx context.Context, limit int) ([]*models.Job, error) {
	return s.repo.GetJobsByStatus(ctx, []models.JobStatus{
		models.JobStatusFailed,
		models.JobStatusPermanentlyFailed,
	}, limit)
}

func (s *service) ClaimNextJob(ctx context.Context, workerID string, jobTypes []models.JobType) (*models.Job, error) {
	job, err := s.repo.ClaimNextJob(ctx, workerID, jobTypes)
	if err != nil {
		if errors.Is(err, ErrNoJobsAvailable) {
			return nil, err
		}
		return nil, fmt.Errorf("claiming job: %w", err)
	}

	slog.DebugContext(ctx, "Claimed job",
		"worker_id", workerID, "job_id", job.ID, "type", job.Type, "attempt", job.Attempts, "max_attempts", job.MaxAttempts)
	return job, nil
}

func (s *service) UpdateProgress(ctx context.Context, jobID uint, progress int) error {
	if err := s.repo.UpdateJobProgress(ctx, jobID, progress); err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return err
		}
		return fmt.Errorf("updating job progress: %w", err)
	}
	return nil
}

func (s *service) CompleteJob(ctx context.Context, jobID uint, result models.JobResult) error {
	if err := s.repo.CompleteJob(ctx, jobID, result); err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return err
		}
		return fmt.Errorf("completing job: %w", err)
	}

	slog.DebugContext(ctx, "Job completed", "job_id", jobID)
	return nil
}

// FailJob classifies err and records the attempt. Not-found errors skip the remaining attempts.
func (s *service) FailJob(ctx context.Context, jobID uint, err error) (*models.Job, error) {
	failure := Failure{Type: models.ErrorTypeSystem, Message: err.Error()}

	var structured *models.StructuredJobError
	if errors.As(err, &structured) {
		failure.Type = structured.Type
		failure.Code = structured.Code
		failure.Message = structured.Message
		failure.Details = structured.Details
		failure.Permanent = structured.Type == models.ErrorTypeNotFound
	}

	job, ferr := s.repo.FailJobWithDetails(ctx, jobID, failure)
	if ferr != nil {
		if errors.Is(ferr, ErrJobNotFound) {
			return nil, ferr
		}
		return nil, fmt.Errorf("failing job: %w", ferr)
	}

	if job.Status == models.JobStatusPermanentlyFailed {
		slog.ErrorContext(ctx, "Job failed permanently",
			"job_id", jobID, "type", job.Type, "attempt", job.Attempts, "error_type", failure.Type,
			"error_code", failure.Code, "error", failure.Message)
	} else {
		slog.WarnContext(ctx, "Job failed, retry scheduled",
			"job_id", jobID, "type", job.Type, "attempt", job.Attempts, "max_attempts", job.MaxAttempts,
			"retry_at", job.AvailableAt, "error", failure.Message)
	}
	return job, nil
}

func (s *service) ReleaseJob(ctx context.Context, jobID uint) error {
	if err := s.repo.ReleaseJob(ctx, jobID); err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return err
		}
		return fmt.Errorf("releasing job: %w", err)
	}

	slog.DebugContext(ctx, "Job released back to pending", "job_id", jobID)
	return nil
}

func (s *service) RecoverStaleJobs(ctx context.Context, olderThan time.Duration) (int64, []*models.Job, error) {
	released, exhausted, err := s.repo.ReleaseStaleJobs(ctx, now().Add(-olderThan))
	if err != nil {
		return 0, nil, err
	}
	if released > 0 {
		slog.WarnContext(ctx, "Recovered stale jobs", "count", released, "exhausted", len(exhausted), "older_than", olderThan)
	}
	for _, job := range exhausted {
		slog.ErrorContext(ctx, "Job failed permanently",
			"job_id", job.ID, "type", job.Type, "attempt", job.Attempts, "error", job.Error)
	}
	return released, exhausted, nil
}

func (s *service) RetryJob(ctx context.Context, jobID uint) (*models.Job, error) {
	if err := s.repo.ResetJob(ctx, jobID); err != nil {
		if errors.Is(err, ErrJobNotRetryable) {
			if _, gerr := s.repo.GetJob(ctx, jobID); errors.Is(gerr, ErrJobNotFound) {
				return nil, gerr
			}
		}
		return nil, err
	}

	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("getting job after retry: %w", err)
	}

	slog.InfoContext(ctx, "Job manually retried", "job_id", jobID, "type", job.Type)
	return job, nil
}

func (s *service) CleanupOldJobs(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, fmt.Errorf("retention must be positive")
	}

	deleted, err := s.repo.DeleteOldJobs(ctx, now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("cleaning up old jobs: %w", err)
	}

	if deleted > 0 {
		slog.InfoContext(ctx, "Deleted old jobs", "count", deleted, "retention", retention)
	}
	return deleted, nil
}
