package meetings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/killallgit/meeting-recorder/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrMeetingNotFound is returned when no meeting has the given ID
var ErrMeetingNotFound = errors.New("meeting not found")

type repository struct {
	db *gorm.DB
}

// NewRepository creates a meetings directory over the relational store
func NewRepository(db *gorm.DB) Directory {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Directory {
	return &repository{db: tx}
}

func (r *repository) GetMeeting(ctx context.Context, meetingID string) (*models.Meeting, error) {
	var meeting models.Meeting
	if err := r.db.WithContext(ctx).Where("id = ?", meetingID).First(&meeting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMeetingNotFound
		}
		return nil, fmt.Errorf("getting meeting: %w", err)
	}
	return &meeting, nil
}

func (r *repository) IsOwner(ctx context.Context, meetingID, userID string) (bool, error) {
	meeting, err := r.GetMeeting(ctx, meetingID)
	if err != nil {
		return false, err
	}
	return meeting.OwnerID == userID, nil
}

// IsParticipant counts the owner as a participant
func (r *repository) IsParticipant(ctx context.Context, meetingID, userID string) (bool, error) {
	owner, err := r.IsOwner(ctx, meetingID, userID)
	if err != nil || owner {
		return owner, err
	}

	var count int64
	err = r.db.WithContext(ctx).
		Model(&models.MeetingParticipant{}).
		Where("meeting_id = ? AND user_id = ?", meetingID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking participant: %w", err)
	}
	return count > 0, nil
}

func (r *repository) ResolveDisplayName(ctx context.Context, identity string) (string, error) {
	var user models.User
	err := r.db.WithContext(ctx).Select("name").Where("id = ?", identity).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("resolving display name: %w", err)
	}
	return user.Name, nil
}

func (r *repository) MarkActive(ctx context.Context, meetingID string) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.Meeting{}).
		Where("id = ? AND status = ?", meetingID, models.MeetingStatusScheduled).
		Updates(map[string]interface{}{"status": models.MeetingStatusActive, "started_at": now})
	if res.Error != nil {
		return fmt.Errorf("marking meeting active: %w", res.Error)
	}
	return nil
}

func (r *repository) EndMeeting(ctx context.Context, meetingID string) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.Meeting{}).
		Where("id = ? AND status IN ?", meetingID,
			[]models.MeetingStatus{models.MeetingStatusScheduled, models.MeetingStatusActive}).
		Updates(map[string]interface{}{"status": models.MeetingStatusEnded, "ended_at": now})
	if res.Error != nil {
		return fmt.Errorf("ending meeting: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Already ended or cancelled is fine; a missing meeting is not.
		if _, err := r.GetMeeting(ctx, meetingID); err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) AddParticipant(ctx context.Context, meetingID, userID string, role models.ParticipantRole) error {
	now := time.Now().UTC()
	p := models.MeetingParticipant{MeetingID: meetingID, UserID: userID, Role: role, JoinedAt: &now}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "meeting_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"joined_at"}),
		}).
		Create(&p).Error
	if err != nil {
		return fmt.Errorf("adding participant: %w", err)
	}
	return nil
}
