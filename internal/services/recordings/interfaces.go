package recordings

import (
	"context"
	"time"

	"github.com/killallgit/meeting-recorder/internal/models"
	"gorm.io/gorm"
)

// Repository persists composite recordings and per-participant tracks
type Repository interface {
	// Composite recordings
	CreateRecording(ctx context.Context, rec *models.Recording) error
	GetRecordingByID(ctx context.Context, id string) (*models.Recording, error)
	GetRecordingByMeetingID(ctx context.Context, meetingID string) (*models.Recording, error)
	FindRecordingByEgressID(ctx context.Context, egressID string) (*models.Recording, error)
	// UpdateRecordingStatus moves the row to status only while it is in one of from
	UpdateRecordingStatus(ctx context.Context, id string, status models.RecordingStatus, from ...models.RecordingStatus) (bool, error)
	DeleteRecording(ctx context.Context, id string) error

	// Participant tracks
	CreateTrack(ctx context.Context, track *models.ParticipantAudioTrack) error
	GetTrack(ctx context.Context, recordingID, identity string) (*models.ParticipantAudioTrack, error)
	GetTrackByID(ctx context.Context, id string) (*models.ParticipantAudioTrack, error)
	FindTrackByEgressID(ctx context.Context, egressID string) (*models.ParticipantAudioTrack, error)
	ListTracks(ctx context.Context, recordingID string) ([]models.ParticipantAudioTrack, error)
	SetTrackTranscription(ctx context.Context, trackID string, t models.Transcription) error

	// Egress completion
	ResolveEgressTarget(ctx context.Context, egressID string) (EgressTarget, error)
	ApplyEgressResult(ctx context.Context, target EgressTarget, result EgressResult) (bool, error)

	WithTx(tx *gorm.DB) Repository
}

// Service is the user-facing recording management API
type Service interface {
	StartRecording(ctx context.Context, meetingID, userID string) (*models.Recording, error)
	StopRecording(ctx context.Context, meetingID, userID string) (*models.Recording, error)
	GetMeetingRecording(ctx context.Context, meetingID, userID string) (*MeetingRecording, error)
	SignedURL(ctx context.Context, recordingID, userID string) (*SignedURL, error)
	DeleteRecording(ctx context.Context, recordingID, userID string) error
	EndMeeting(ctx context.Context, meetingID, userID string) error
	// GetTrackTranscript returns a speaker track whose transcription completed
	GetTrackTranscript(ctx context.Context, meetingID, trackID, userID string) (*models.ParticipantAudioTrack, error)
}

// TargetKind tags the row an egress ID belongs to
type TargetKind int

const (
	TargetUnknown TargetKind = iota
	TargetComposite
	TargetTrack
)

func (k TargetKind) String() string {
	switch k {
	case TargetComposite:
		return "composite"
	case TargetTrack:
		return "track"
	default:
		return "unknown"
	}
}

// EgressTarget is Composite(Recording), Track(ParticipantAudioTrack) or Unknown.
// Exactly one of Recording and Track is set for a known kind.
type EgressTarget struct {
	Kind      TargetKind
	Recording *models.Recording
	Track     *models.ParticipantAudioTrack
}

// EgressID returns the egress identifier of the resolved row
func (t EgressTarget) EgressID() string {
	switch t.Kind {
	case TargetComposite:
		return t.Recording.EgressID
	case TargetTrack:
		return t.Track.EgressID
	}
	return ""
}

// EgressResult is the terminal outcome reported by egress_ended
type EgressResult struct {
	Status   models.RecordingStatus
	FilePath *string
	FileSize *int64
	Duration *int
}

// MeetingRecording is a recording with its tracks and, when ready, a download URL
type MeetingRecording struct {
	Recording   *models.Recording              `json:"recording"`
	AudioTracks []models.ParticipantAudioTrack `json:"audio_tracks"`
	URL         string                         `json:"url,omitempty"`
	ExpiresIn   int                            `json:"expires_in,omitempty"`
}

// SignedURL is a presigned download link
type SignedURL struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"` // seconds
}

// DefaultURLTTL is the lifetime of presigned download links
const DefaultURLTTL = time.Hour
