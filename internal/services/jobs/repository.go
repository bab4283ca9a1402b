package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/killallgit/meeting-recorder/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository errors
var (
	ErrJobNotFound     = errors.New("job not found")
	ErrNoJobsAvailable = errors.New("no jobs available")
	ErrJobNotRetryable = errors.New("job is not in a failed state")
)

// Repository defines the interface for job persistence
type Repository interface {
	// Create operations
	CreateJob(ctx context.Context, job *models.Job) error
	CreateJobIfAbsent(ctx context.Context, job *models.Job) (bool, error)

	// Read operations
	GetJob(ctx context.Context, id uint) (*models.Job, error)
	GetJobByUniqueKey(ctx context.Context, uniqueKey string) (*models.Job, error)
	GetJobsByStatus(ctx context.Context, statuses []models.JobStatus, limit int) ([]*models.Job, error)

	// Update operations
	ClaimNextJob(ctx context.Context, workerID string, jobTypes []models.JobType) (*models.Job, error)
	UpdateJobProgress(ctx context.Context, jobID uint, progress int) error
	CompleteJob(ctx context.Context, jobID uint, result models.JobResult) error
	FailJobWithDetails(ctx context.Context, jobID uint, failure Failure) (*models.Job, error)
	ReleaseJob(ctx context.Context, jobID uint) error
	ResetJob(ctx context.Context, jobID uint) error
	// ReleaseStaleJobs returns the number of jobs released and the jobs among
	// them that used their last attempt and are now permanently_failed
	ReleaseStaleJobs(ctx context.Context, startedBefore time.Time) (int64, []*models.Job, error)

	// Delete operations
	DeleteOldJobs(ctx context.Context, olderThan time.Time) (int64, error)

	WithTx(tx *gorm.DB) Repository
}

// Failure describes one failed attempt
type Failure struct {
	Type      models.JobErrorType
	Code      string
	Message   string
	Details   string
	Permanent bool // skip remaining attempts
}

// repository implements Repository interface
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new job repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{
		db: db,
	}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func now() time.Time {
	return time.Now().UTC()
}

// CreateJob creates a new job
func (r *repository) CreateJob(ctx context.Context, job *models.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// CreateJobIfAbsent inserts the job unless its unique key is taken. It never
// raises a constraint error, so it is safe inside a larger transaction.
func (r *repository) CreateJobIfAbsent(ctx context.Context, job *models.Job) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "unique_key"}}, DoNothing: true}).
		Create(job)
	if res.Error != nil {
		return false, fmt.Errorf("creating job: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// GetJob retrieves a job by ID
func (r *repository) GetJob(ctx context.Context, id uint) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).First(&job, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("getting job: %w", err)
	}
	return &job, nil
}

// GetJobByUniqueKey finds the job holding a de-duplication key
func (r *repository) GetJobByUniqueKey(ctx context.Context, uniqueKey string) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).Where("unique_key = ?", uniqueKey).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("getting job by unique key: %w", err)
	}
	return &job, nil
}

// GetJobsByStatus retrieves jobs by status, newest first
func (r *repository) GetJobsByStatus(ctx context.Context, statuses []models.JobStatus, limit int) ([]*models.Job, error) {
	var jobs []*models.Job
	query := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("updated_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	return jobs, nil
}

// ClaimNextJob atomically claims the next runnable job for a worker and counts the attempt
func (r *repository) ClaimNextJob(ctx context.Context, workerID string, jobTypes []models.JobType) (*models.Job, error) {
	var job models.Job

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ts := now()
		query := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status IN ?", []models.JobStatus{models.JobStatusPending, models.JobStatusFailed}).
			Where("attempts < max_attempts").
			Where("available_at <= ?", ts)

		if len(jobTypes) > 0 {
			query = query.Where("type IN ?", jobTypes)
		}

		err := query.Order("priority DESC, available_at ASC, id ASC").First(&job).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoJobsAvailable
			}
			return fmt.Errorf("finding job to claim: %w", err)
		}

		// The status guard keeps two racing claimers from both winning on
		// databases without row locks.
		res := tx.Model(&models.Job{}).
			Where("id = ? AND status = ?", job.ID, job.Status).
			Updates(map[string]interface{}{
				"status":     models.JobStatusProcessing,
				"worker_id":  workerID,
				"started_at": ts,
				"attempts":   gorm.Expr("attempts + 1"),
			})
		if res.Error != nil {
			return fmt.Errorf("updating claimed job: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNoJobsAvailable
		}

		job.Status = models.JobStatusProcessing
		job.WorkerID = workerID
		job.StartedAt = &ts
		job.Attempts++
		return nil
	})

	if err != nil {
		return nil, err
	}

	return &job, nil
}

// UpdateJobProgress updates the progress of a job
func (r *repository) UpdateJobProgress(ctx context.Context, jobID uint, progress int) error {
	if progress < 0 {
		progress = 0
	} else if progress > 100 {
		progress = 100
	}

	result := r.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("id = ? AND status = ?", jobID, models.JobStatusProcessing).
		Update("progress", progress)

	if result.Error != nil {
		return fmt.Errorf("updating job progress: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrJobNotFound
	}

	return nil
}

// CompleteJob marks a job as completed, or deletes it when the job asked to be removed on completion
func (r *repository) CompleteJob(ctx context.Context, jobID uint, result models.JobResult) error {
	job, err := r.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	if job.RemoveOnComplete {
		res := r.db.WithContext(ctx).Unscoped().Delete(&models.Job{}, jobID)
		if res.Error != nil {
			return fmt.Errorf("removing completed job: %w", res.Error)
		}
		return nil
	}

	ts := now()
	res := r.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":       models.JobStatusCompleted,
			"progress":     100,
			"completed_at": ts,
			"result":       result,
			"worker_id":    "",
		})

	if res.Error != nil {
		return fmt.Errorf("completing job: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrJobNotFound
	}
	return nil
}

// FailJobWithDetails records a failed attempt. The job is scheduled for another
// attempt after its backoff, or kept as permanently_failed once attempts are exhausted.
func (r *repository) FailJobWithDetails(ctx context.Context, jobID uint, failure Failure) (*models.Job, error) {
	job, err := r.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	ts := now()
	updates := map[string]interface{}{
		"error":          failure.Message,
		"error_type":     string(failure.Type),
		"error_code":     failure.Code,
		"error_details":  failure.Details,
		"last_failed_at": ts,
		"worker_id":      "",
	}

	if failure.Permanent || job.IsFinalAttempt() {
		job.Status = models.JobStatusPermanentlyFailed
		updates["completed_at"] = ts
	} else {
		job.Status = models.JobStatusFailed
		job.AvailableAt = ts.Add(job.NextBackoff())
		updates["available_at"] = job.AvailableAt
	}
	updates["status"] = job.Status

	if err := r.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("id = ?", jobID).
		Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failing job: %w", err)
	}

	job.Error = failure.Message
	job.ErrorType = string(failure.Type)
	job.ErrorCode = failure.Code
	job.ErrorDetails = failure.Details
	job.LastFailedAt = &ts
	job.WorkerID = ""
	return job, nil
}

// ReleaseJob hands a claimed job back without counting the attempt (e.g. on shutdown)
func (r *repository) ReleaseJob(ctx context.Context, jobID uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("id = ? AND status = ?", jobID, models.JobStatusProcessing).
		Updates(map[string]interface{}{
			"status":     models.JobStatusPending,
			"worker_id":  "",
			"started_at": nil,
			"progress":   0,
			"attempts":   gorm.Expr("CASE WHEN attempts > 0 THEN attempts - 1 ELSE 0 END"),
		})

	if result.Error != nil {
		return fmt.Errorf("releasing job: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrJobNotFound
	}

	return nil
}

// ResetJob gives a failed job a fresh set of attempts
func (r *repository) ResetJob(ctx context.Context, jobID uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("id = ? AND status IN ?", jobID, []models.JobStatus{models.JobStatusFailed, models.JobStatusPermanentlyFailed}).
		Updates(map[string]interface{}{
			"status":       models.JobStatusPending,
			"attempts":     0,
			"available_at": now(),
			"completed_at": nil,
			"worker_id":    "",
			"progress":     0,
		})

	if result.Error != nil {
		return fmt.Errorf("resetting job: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrJobNotRetryable
	}

	return nil
}

// staleJobError is recorded on jobs whose worker never reported back
const staleJobError = "worker timed out"

// ReleaseStaleJobs returns processing jobs whose worker vanished to the queue.
// The interrupted run still counts as an attempt. Each row is moved with a
// conditional update so a job finishing concurrently is left alone.
func (r *repository) ReleaseStaleJobs(ctx context.Context, startedBefore time.Time) (int64, []*models.Job, error) {
	var (
		released  int64
		exhausted []*models.Job
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stale []*models.Job
		if err := tx.Where("status = ? AND started_at < ?", models.JobStatusProcessing, startedBefore).
			Find(&stale).Error; err != nil {
			return err
		}

		for _, job := range stale {
			status := models.JobStatusFailed
			if job.Attempts >= job.MaxAttempts {
				status = models.JobStatusPermanentlyFailed
			}
			ts := now()
			result := tx.Model(&models.Job{}).
				Where("id = ? AND status = ? AND started_at < ?", job.ID, models.JobStatusProcessing, startedBefore).
				Updates(map[string]interface{}{
					"status":         status,
					"worker_id":      "",
					"error":          staleJobError,
					"error_type":     string(models.ErrorTypeSystem),
					"last_failed_at": ts,
					"available_at":   ts,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				continue
			}

			released++
			if status == models.JobStatusPermanentlyFailed {
				job.Status = status
				job.WorkerID = ""
				job.Error = staleJobError
				job.ErrorType = string(models.ErrorTypeSystem)
				exhausted = append(exhausted, job)
			}
		}
		return nil
	})
	if err != nil {
		return 0, nil, fmt.Errorf("releasing stale jobs: %w", err)
	}
	return released, exhausted, nil
}

// DeleteOldJobs deletes finished jobs older than the specified time
func (r *repository) DeleteOldJobs(ctx context.Context, olderThan time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Unscoped().
		Where("updated_at < ?", olderThan).
		Where("status IN ?", []models.JobStatus{
			models.JobStatusCompleted,
			models.JobStatusPermanentlyFailed,
			models.JobStatusCancelled,
		}).
		Delete(&models.Job{})

	if result.Error != nil {
		return 0, fmt.Errorf("deleting old jobs: %w", result.Error)
	}

	return result.RowsAffected, nil
}
