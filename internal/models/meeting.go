package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MeetingStatus is the lifecycle state owned by the scheduling side of the product
type MeetingStatus string

const (
	MeetingStatusScheduled MeetingStatus = "scheduled"
	MeetingStatusActive    MeetingStatus = "active"
	MeetingStatusEnded     MeetingStatus = "ended"
	MeetingStatusCancelled MeetingStatus = "cancelled"
)

// ParticipantRole is the role a user holds in a meeting
type ParticipantRole string

const (
	ParticipantRoleHost        ParticipantRole = "host"
	ParticipantRoleParticipant ParticipantRole = "participant"
)

// Meeting is a conferencing session. Its ID doubles as the media room name.
type Meeting struct {
	ID          string        `json:"id" gorm:"primaryKey;size:64"`
	OwnerID     string        `json:"owner_id" gorm:"size:64;not null;index"`
	Title       string        `json:"title"`
	Status      MeetingStatus `json:"status" gorm:"size:16;not null;default:'scheduled'"`
	ScheduledAt *time.Time    `json:"scheduled_at,omitempty"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	EndedAt     *time.Time    `json:"ended_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// BeforeCreate assigns an ID when the caller did not supply one
func (m *Meeting) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// IsOpen reports whether the meeting can still be recorded
func (m *Meeting) IsOpen() bool {
	return m.Status == MeetingStatusScheduled || m.Status == MeetingStatusActive
}

// MeetingParticipant links a user to a meeting
type MeetingParticipant struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	MeetingID string          `json:"meeting_id" gorm:"size:64;not null;uniqueIndex:idx_meeting_participants_meeting_user"`
	UserID    string          `json:"user_id" gorm:"size:64;not null;uniqueIndex:idx_meeting_participants_meeting_user"`
	Role      ParticipantRole `json:"role" gorm:"size:16;not null;default:'participant'"`
	JoinedAt  *time.Time      `json:"joined_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// User is the slice of the user directory needed to label speakers
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;size:64"`
	Name      string    `json:"name"`
	Email     string    `json:"email" gorm:"index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
