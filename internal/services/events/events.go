// Package events publishes pipeline notifications for downstream consumers.
// Delivery is best effort: a failed publish is logged and never fails the
// operation that produced the event.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/killallgit/meeting-recorder/internal/logging"
	"github.com/killallgit/meeting-recorder/pkg/config"
)

// Type names a notification
type Type string

const (
	TypeRecordingStarted       Type = "recording.started"
	TypeRecordingReady         Type = "recording.ready"
	TypeRecordingFailed        Type = "recording.failed"
	TypeTrackStarted           Type = "track.started"
	TypeTranscriptionCompleted Type = "transcription.completed"
	TypeTranscriptionFailed    Type = "transcription.failed"
	TypeRoomFinished           Type = "room.finished"
)

// Backends
const (
	BackendNone  = "none"
	BackendNATS  = "nats"
	BackendKafka = "kafka"
	BackendRedis = "redis"
)

// Event is the JSON document sent to every backend
type Event struct {
	Type        Type                   `json:"type"`
	MeetingID   string                 `json:"meeting_id"`
	RecordingID string                 `json:"recording_id,omitempty"`
	TrackID     string                 `json:"track_id,omitempty"`
	EgressID    string                 `json:"egress_id,omitempty"`
	Data        map[string]interface{} `json:"data,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}

func (e Event) encode() ([]byte, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return json.Marshal(e)
}

// Publisher sends events to a broker
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// New builds the publisher selected by cfg.Backend
func New(cfg config.EventsConfig) (Publisher, error) {
	switch cfg.Backend {
	case "", BackendNone:
		return Noop{}, nil
	case BackendNATS:
		return NewNATSPublisher(cfg.NATSURL, cfg.Prefix)
	case BackendKafka:
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.Prefix)
	case BackendRedis:
		return NewRedisPublisher(cfg.RedisAddr, cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown events backend: %q", cfg.Backend)
	}
}

// Emit publishes and logs failures instead of returning them
func Emit(ctx context.Context, p Publisher, event Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, event); err != nil {
		slog.WarnContext(ctx, "failed to publish event", logging.ErrKey, err, "type", event.Type, "meeting_id", event.MeetingID)
	}
}

// Noop drops every event
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }
