package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/killallgit/meeting-recorder/internal/models"
	"gorm.io/gorm"
)

// ErrRunNotFound is returned when no prompt run has the given ID
var ErrRunNotFound = errors.New("prompt run not found")

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new prompt run repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) CreateRun(ctx context.Context, run *models.PromptRun) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("creating prompt run: %w", err)
	}
	return nil
}

func (r *repository) FinishRun(ctx context.Context, id string, status models.PromptRunStatus, result, errMsg *string) (bool, error) {
	if status != models.PromptRunStatusCompleted && status != models.PromptRunStatusFailed {
		return false, fmt.Errorf("prompt run cannot finish as %q", status)
	}
	res := r.db.WithContext(ctx).
		Model(&models.PromptRun{}).
		Where("id = ? AND status = ?", id, models.PromptRunStatusProcessing).
		Updates(map[string]interface{}{
			"status": status,
			"result": result,
			"error":  errMsg,
		})
	if res.Error != nil {
		return false, fmt.Errorf("finishing prompt run: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) GetRun(ctx context.Context, id string) (*models.PromptRun, error) {
	var run models.PromptRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("getting prompt run: %w", err)
	}
	return &run, nil
}

func (r *repository) ListRunsByRecording(ctx context.Context, recordingID string) ([]models.PromptRun, error) {
	var runs []models.PromptRun
	err := r.db.WithContext(ctx).
		Where("recording_id = ?", recordingID).
		Order("created_at DESC").
		Order("id").
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("listing prompt runs: %w", err)
	}
	return runs, nil
}
