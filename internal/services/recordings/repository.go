package recordings

import (
	"context"
	"errors"
	"fmt"

	"github.com/killallgit/meeting-recorder/internal/models"
	"gorm.io/gorm"
)

// Repository errors
var (
	ErrRecordingNotFound = errors.New("recording not found")
	ErrTrackNotFound     = errors.New("audio track not found")
	ErrAlreadyExists     = errors.New("already exists")
)

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new recordings repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func createErr(what string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s: %w", what, ErrAlreadyExists)
	}
	return fmt.Errorf("creating %s: %w", what, err)
}

func (r *repository) CreateRecording(ctx context.Context, rec *models.Recording) error {
	if err := r.db.WithContext(ctx).Omit("AudioTracks").Create(rec).Error; err != nil {
		return createErr("recording", err)
	}
	return nil
}

func (r *repository) firstRecording(ctx context.Context, query string, arg interface{}) (*models.Recording, error) {
	var rec models.Recording
	if err := r.db.WithContext(ctx).Where(query, arg).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordingNotFound
		}
		return nil, fmt.Errorf("getting recording: %w", err)
	}
	return &rec, nil
}

func (r *repository) GetRecordingByID(ctx context.Context, id string) (*models.Recording, error) {
	return r.firstRecording(ctx, "id = ?", id)
}

func (r *repository) GetRecordingByMeetingID(ctx context.Context, meetingID string) (*models.Recording, error) {
	return r.firstRecording(ctx, "meeting_id = ?", meetingID)
}

func (r *repository) FindRecordingByEgressID(ctx context.Context, egressID string) (*models.Recording, error) {
	return r.firstRecording(ctx, "egress_id = ?", egressID)
}

func (r *repository) UpdateRecordingStatus(ctx context.Context, id string, status models.RecordingStatus, from ...models.RecordingStatus) (bool, error) {
	q := r.db.WithContext(ctx).Model(&models.Recording{}).Where("id = ?", id)
	if len(from) > 0 {
		q = q.Where("status IN ?", from)
	}
	res := q.Update("status", status)
	if res.Error != nil {
		return false, fmt.Errorf("updating recording status: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// DeleteRecording removes the recording and its tracks in one transaction
func (r *repository) DeleteRecording(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recording_id = ?", id).Delete(&models.ParticipantAudioTrack{}).Error; err != nil {
			return fmt.Errorf("deleting audio tracks: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&models.Recording{})
		if res.Error != nil {
			return fmt.Errorf("deleting recording: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrRecordingNotFound
		}
		return nil
	})
}

func (r *repository) CreateTrack(ctx context.Context, track *models.ParticipantAudioTrack) error {
	if err := r.db.WithContext(ctx).Create(track).Error; err != nil {
		return createErr("audio track", err)
	}
	return nil
}

func (r *repository) firstTrack(ctx context.Context, query string, args ...interface{}) (*models.ParticipantAudioTrack, error) {
	var track models.ParticipantAudioTrack
	if err := r.db.WithContext(ctx).Where(query, args...).First(&track).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTrackNotFound
		}
		return nil, fmt.Errorf("getting audio track: %w", err)
	}
	return &track, nil
}

func (r *repository) GetTrack(ctx context.Context, recordingID, identity string) (*models.ParticipantAudioTrack, error) {
	return r.firstTrack(ctx, "recording_id = ? AND participant_identity = ?", recordingID, identity)
}

func (r *repository) GetTrackByID(ctx context.Context, id string) (*models.ParticipantAudioTrack, error) {
	return r.firstTrack(ctx, "id = ?", id)
}

func (r *repository) FindTrackByEgressID(ctx context.Context, egressID string) (*models.ParticipantAudioTrack, error) {
	return r.firstTrack(ctx, "egress_id = ?", egressID)
}

func (r *repository) ListTracks(ctx context.Context, recordingID string) ([]models.ParticipantAudioTrack, error) {
	var tracks []models.ParticipantAudioTrack
	err := r.db.WithContext(ctx).
		Where("recording_id = ?", recordingID).
		Order("created_at ASC").
		Find(&tracks).Error
	if err != nil {
		return nil, fmt.Errorf("listing audio tracks: %w", err)
	}
	return tracks, nil
}

// SetTrackTranscription overwrites the whole transcription document
func (r *repository) SetTrackTranscription(ctx context.Context, trackID string, t models.Transcription) error {
	res := r.db.WithContext(ctx).
		Model(&models.ParticipantAudioTrack{}).
		Where("id = ?", trackID).
		Update("transcription", t)
	if res.Error != nil {
		return fmt.Errorf("updating transcription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTrackNotFound
	}
	return nil
}

// ResolveEgressTarget probes composite recordings first, then tracks
func (r *repository) ResolveEgressTarget(ctx context.Context, egressID string) (EgressTarget, error) {
	if egressID == "" {
		return EgressTarget{Kind: TargetUnknown}, nil
	}

	rec, err := r.FindRecordingByEgressID(ctx, egressID)
	switch {
	case err == nil:
		return EgressTarget{Kind: TargetComposite, Recording: rec}, nil
	case !errors.Is(err, ErrRecordingNotFound):
		return EgressTarget{}, err
	}

	track, err := r.FindTrackByEgressID(ctx, egressID)
	switch {
	case err == nil:
		return EgressTarget{Kind: TargetTrack, Track: track}, nil
	case !errors.Is(err, ErrTrackNotFound):
		return EgressTarget{}, err
	}

	return EgressTarget{Kind: TargetUnknown}, nil
}

// ApplyEgressResult moves a non-terminal row to its terminal status. It
// reports false when the row had already ended, which makes redelivered
// egress_ended events no-ops. On success the target's row is refreshed.
func (r *repository) ApplyEgressResult(ctx context.Context, target EgressTarget, result EgressResult) (bool, error) {
	if !result.Status.IsTerminal() {
		return false, fmt.Errorf("egress result status %q is not terminal", result.Status)
	}

	var model interface{}
	switch target.Kind {
	case TargetComposite:
		model = &models.Recording{}
	case TargetTrack:
		model = &models.ParticipantAudioTrack{}
	default:
		return false, fmt.Errorf("cannot apply egress result to %s target", target.Kind)
	}

	updates := map[string]interface{}{"status": result.Status}
	if result.FilePath != nil {
		updates["file_path"] = *result.FilePath
	}
	if result.FileSize != nil {
		updates["file_size"] = *result.FileSize
	}
	if result.Duration != nil {
		updates["duration"] = *result.Duration
	}

	res := r.db.WithContext(ctx).
		Model(model).
		Where("egress_id = ? AND status NOT IN ?", target.EgressID(), models.TerminalRecordingStatuses).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("applying egress result: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	switch target.Kind {
	case TargetComposite:
		rec, err := r.FindRecordingByEgressID(ctx, target.EgressID())
		if err != nil {
			return true, err
		}
		*target.Recording = *rec
	case TargetTrack:
		track, err := r.FindTrackByEgressID(ctx, target.EgressID())
		if err != nil {
			return true, err
		}
		*target.Track = *track
	}
	return true, nil
}
