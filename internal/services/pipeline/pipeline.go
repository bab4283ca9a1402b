// Package pipeline reacts to media server webhooks: it starts recordings
// when rooms and speakers appear and queues transcription when audio is ready.
//
// Handlers never fail a delivery because of the media server or the object
// store. Those errors are logged and the state is left untouched so a
// redelivered event can try again. Only store errors are returned.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/killallgit/meeting-recorder/internal/logging"
	"github.com/killallgit/meeting-recorder/internal/services/egress"
	"github.com/killallgit/meeting-recorder/internal/services/events"
	"github.com/killallgit/meeting-recorder/internal/services/idempotency"
	"github.com/killallgit/meeting-recorder/internal/services/jobs"
	"github.com/killallgit/meeting-recorder/internal/services/meetings"
	"github.com/killallgit/meeting-recorder/internal/services/recordings"
	"github.com/killallgit/meeting-recorder/internal/services/webhook"
	"gorm.io/gorm"
)

// Config tunes the handlers
type Config struct {
	// EgressIdentityPrefix marks participants that are recorder bots
	EgressIdentityPrefix string
	// ParticipantEgress records whole participants on join instead of waiting for tracks
	ParticipantEgress bool
	LeaseTTL          time.Duration

	TranscriptionAttempts int
	TranscriptionBackoff  time.Duration
}

// Handlers holds the collaborators shared by every webhook handler
type Handlers struct {
	db         *gorm.DB
	recordings recordings.Repository
	meetings   meetings.Directory
	jobs       jobs.Service
	egress     egress.Client
	outputs    *egress.OutputBuilder
	guard      idempotency.Guard
	publisher  events.Publisher
	cfg        Config
}

// New creates the pipeline handlers
func New(
	db *gorm.DB,
	recs recordings.Repository,
	directory meetings.Directory,
	jobService jobs.Service,
	egressClient egress.Client,
	outputs *egress.OutputBuilder,
	guard idempotency.Guard,
	publisher events.Publisher,
	cfg Config,
) *Handlers {
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = 30 * time.Second
	}
	if cfg.TranscriptionAttempts <= 0 {
		cfg.TranscriptionAttempts = jobs.DefaultMaxAttempts
	}
	if cfg.TranscriptionBackoff <= 0 {
		cfg.TranscriptionBackoff = jobs.DefaultBackoff
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Handlers{
		db:         db,
		recordings: recs,
		meetings:   directory,
		jobs:       jobService,
		egress:     egressClient,
		outputs:    outputs,
		guard:      guard,
		publisher:  publisher,
		cfg:        cfg,
	}
}

// Register routes every handled event type
func (h *Handlers) Register(r *webhook.Router) {
	r.Handle(webhook.EventRoomStarted, h.RoomStarted)
	r.Handle(webhook.EventTrackPublished, h.TrackPublished)
	r.Handle(webhook.EventParticipantJoined, h.ParticipantJoined)
	r.Handle(webhook.EventEgressEnded, h.EgressEnded)
	r.Handle(webhook.EventRoomFinished, h.RoomFinished)
}

func (h *Handlers) isBot(identity string) bool {
	return h.cfg.EgressIdentityPrefix != "" && strings.HasPrefix(identity, h.cfg.EgressIdentityPrefix)
}

func (h *Handlers) release(ctx context.Context, key string) {
	if err := h.guard.Release(context.WithoutCancel(ctx), key); err != nil {
		slog.WarnContext(ctx, "Failed to release lease", logging.ErrKey, err, "key", key)
	}
}

// stopOrphan stops an egress whose row lost the insert race
func (h *Handlers) stopOrphan(ctx context.Context, egressID string) {
	if _, err := h.egress.StopEgress(context.WithoutCancel(ctx), egressID); err != nil {
		slog.ErrorContext(ctx, "Failed to stop orphaned egress", logging.ErrKey, err, "egress_id", egressID, logging.PriorityCritical())
		return
	}
	slog.WarnContext(ctx, "Stopped orphaned egress", "egress_id", egressID)
}
