package meetings

import (
	"context"

	"github.com/killallgit/meeting-recorder/internal/models"
	"gorm.io/gorm"
)

// Directory is the read side of the scheduling subsystem plus the few
// lifecycle writes the recorder owns
type Directory interface {
	GetMeeting(ctx context.Context, meetingID string) (*models.Meeting, error)
	IsParticipant(ctx context.Context, meetingID, userID string) (bool, error)
	IsOwner(ctx context.Context, meetingID, userID string) (bool, error)
	// ResolveDisplayName returns the directory name for identity, or "" when unknown
	ResolveDisplayName(ctx context.Context, identity string) (string, error)

	MarkActive(ctx context.Context, meetingID string) error
	EndMeeting(ctx context.Context, meetingID string) error
	// AddParticipant is idempotent; a repeated join only refreshes joined_at
	AddParticipant(ctx context.Context, meetingID, userID string, role models.ParticipantRole) error

	WithTx(tx *gorm.DB) Directory
}
