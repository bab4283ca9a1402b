package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecordingStatus is shared by composite recordings and per-participant tracks
type RecordingStatus string

const (
	RecordingStatusRecording  RecordingStatus = "recording"
	RecordingStatusProcessing RecordingStatus = "processing"
	RecordingStatusReady      RecordingStatus = "ready"
	RecordingStatusFailed     RecordingStatus = "failed"
)

// IsTerminal reports whether the egress behind this row has already ended
func (s RecordingStatus) IsTerminal() bool {
	return s == RecordingStatusReady || s == RecordingStatusFailed
}

// TerminalRecordingStatuses lists the statuses an egress_ended event moves rows into
var TerminalRecordingStatuses = []RecordingStatus{RecordingStatusReady, RecordingStatusFailed}

// Recording is the room composite recording of a meeting
type Recording struct {
	ID          string                  `json:"id" gorm:"primaryKey;size:36"`
	MeetingID   string                  `json:"meeting_id" gorm:"size:64;not null;uniqueIndex"`
	EgressID    string                  `json:"egress_id" gorm:"size:128;not null;uniqueIndex"`
	FilePath    *string                 `json:"file_path"`
	FileSize    *int64                  `json:"file_size"`
	Duration    *int                    `json:"duration"` // seconds
	Status      RecordingStatus         `json:"status" gorm:"size:16;not null;default:'recording';index"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
	AudioTracks []ParticipantAudioTrack `json:"audio_tracks,omitempty" gorm:"foreignKey:RecordingID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate assigns a UUID primary key
func (r *Recording) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// IsPlayable reports whether the composite file can be handed out
func (r *Recording) IsPlayable() bool {
	return r.Status == RecordingStatusReady && r.FilePath != nil && *r.FilePath != ""
}

// ParticipantAudioTrack is the isolated audio egress of one speaker
type ParticipantAudioTrack struct {
	ID                  string          `json:"id" gorm:"primaryKey;size:36"`
	RecordingID         string          `json:"recording_id" gorm:"size:36;not null;uniqueIndex:idx_tracks_recording_identity"`
	ParticipantIdentity string          `json:"participant_identity" gorm:"size:255;not null;uniqueIndex:idx_tracks_recording_identity"`
	ParticipantName     string          `json:"participant_name"`
	TrackSID            *string         `json:"track_sid"` // nil for whole-participant egress
	EgressID            string          `json:"egress_id" gorm:"size:128;not null;uniqueIndex"`
	FilePath            *string         `json:"file_path"`
	FileSize            *int64          `json:"file_size"`
	Duration            *int            `json:"duration"`
	Status              RecordingStatus `json:"status" gorm:"size:16;not null;default:'recording';index"`
	Transcription       Transcription   `json:"transcription" gorm:"type:json"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// BeforeCreate assigns a UUID primary key
func (t *ParticipantAudioTrack) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// TableName specifies the table name for GORM
func (ParticipantAudioTrack) TableName() string {
	return "participant_audio_tracks"
}

// TranscriptionStatus is the state of the per-track transcript. The empty value means pending.
type TranscriptionStatus string

const (
	TranscriptionStatusPending    TranscriptionStatus = ""
	TranscriptionStatusProcessing TranscriptionStatus = "processing"
	TranscriptionStatusCompleted  TranscriptionStatus = "completed"
	TranscriptionStatusFailed     TranscriptionStatus = "failed"
)

// Segment is a piece of transcript with offsets in seconds from the start of the track
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcription is stored as one JSON document and always written whole
type Transcription struct {
	Status   TranscriptionStatus `json:"status"`
	Error    string              `json:"error,omitempty"`
	Segments []Segment           `json:"segments"`
}

// Value implements driver.Valuer. A pending transcription is stored as NULL.
func (t Transcription) Value() (driver.Value, error) {
	if t.Status == TranscriptionStatusPending {
		return nil, nil
	}
	if t.Segments == nil {
		t.Segments = []Segment{}
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (t *Transcription) Scan(value interface{}) error {
	*t = Transcription{}
	var raw []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("unsupported transcription column type")
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, t)
}

// Text joins the segment texts in order
func (t Transcription) Text() string {
	parts := make([]string, 0, len(t.Segments))
	for _, s := range t.Segments {
		if txt := strings.TrimSpace(s.Text); txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.Join(parts, " ")
}

// ProcessingTranscription is the marker written when a worker picks a track up
func ProcessingTranscription() Transcription {
	return Transcription{Status: TranscriptionStatusProcessing, Segments: []Segment{}}
}

// CompletedTranscription builds the terminal success value
func CompletedTranscription(segments []Segment) Transcription {
	if segments == nil {
		segments = []Segment{}
	}
	return Transcription{Status: TranscriptionStatusCompleted, Segments: segments}
}

// FailedTranscription builds the terminal failure value
func FailedTranscription(errMsg string) Transcription {
	return Transcription{Status: TranscriptionStatusFailed, Error: errMsg, Segments: []Segment{}}
}
