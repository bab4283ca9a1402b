package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/killallgit/meeting-recorder/internal/logging"
	"github.com/killallgit/meeting-recorder/internal/models"
	"github.com/killallgit/meeting-recorder/internal/services/egress"
	"github.com/killallgit/meeting-recorder/internal/services/events"
	"github.com/killallgit/meeting-recorder/internal/services/idempotency"
	"github.com/killallgit/meeting-recorder/internal/services/meetings"
	"github.com/killallgit/meeting-recorder/internal/services/recordings"
	"github.com/killallgit/meeting-recorder/internal/services/webhook"
)

// TrackPublished starts an isolated audio egress for a speaker's microphone.
// The existing track is checked before the lease and the egress start; a
// duplicate that still slips through is caught by the unique insert and its
// egress stopped.
func (h *Handlers) TrackPublished(ctx context.Context, e *webhook.Event) error {
	meetingID := e.RoomName()
	if meetingID == "" || e.Participant == nil || e.Track == nil {
		return nil
	}
	ctx = logging.AppendCtx(ctx,
		slog.String("participant", e.Participant.Identity),
		slog.String("track_sid", e.Track.SID),
	)

	if e.Track.Source != webhook.SourceMicrophone {
		slog.DebugContext(ctx, "Skipping non-microphone track", "source", e.Track.Source)
		return nil
	}
	if e.Track.Type != "" && e.Track.Type != webhook.TrackTypeAudio {
		slog.DebugContext(ctx, "Skipping non-audio track", "type", e.Track.Type)
		return nil
	}
	if h.isBot(e.Participant.Identity) {
		slog.DebugContext(ctx, "Skipping recorder bot track")
		return nil
	}
	if h.cfg.ParticipantEgress {
		// participant_joined already records the whole participant
		return nil
	}

	trackSID := e.Track.SID
	return h.startSpeakerEgress(ctx, meetingID, e.Participant, &trackSID)
}

// ParticipantJoined records attendance and, when whole-participant egress is
// enabled, starts the speaker's audio egress without waiting for a track.
func (h *Handlers) ParticipantJoined(ctx context.Context, e *webhook.Event) error {
	meetingID := e.RoomName()
	if meetingID == "" || e.Participant == nil || e.Participant.Identity == "" {
		return nil
	}
	identity := e.Participant.Identity
	ctx = logging.AppendCtx(ctx, slog.String("participant", identity))

	if h.isBot(identity) {
		return nil
	}

	meeting, err := h.meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		if errors.Is(err, meetings.ErrMeetingNotFound) {
			slog.InfoContext(ctx, "Meeting not found for room")
			return nil
		}
		return err
	}

	role := models.ParticipantRoleParticipant
	if meeting.OwnerID == identity {
		role = models.ParticipantRoleHost
	}
	if err := h.meetings.AddParticipant(ctx, meetingID, identity, role); err != nil {
		slog.WarnContext(ctx, "Failed to record attendance", logging.ErrKey, err)
	}

	if !h.cfg.ParticipantEgress {
		return nil
	}
	return h.startSpeakerEgress(ctx, meetingID, e.Participant, nil)
}

// startSpeakerEgress starts a track egress when trackSID is set and a whole
// participant egress otherwise, then stores the track row
func (h *Handlers) startSpeakerEgress(ctx context.Context, meetingID string, p *webhook.Participant, trackSID *string) error {
	if _, err := h.meetings.GetMeeting(ctx, meetingID); err != nil {
		if errors.Is(err, meetings.ErrMeetingNotFound) {
			slog.InfoContext(ctx, "Meeting not found for room")
			return nil
		}
		return err
	}

	rec, err := h.recordings.GetRecordingByMeetingID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, recordings.ErrRecordingNotFound) {
			slog.InfoContext(ctx, "No recording for meeting, skipping speaker egress")
			return nil
		}
		return err
	}

	if _, err := h.recordings.GetTrack(ctx, rec.ID, p.Identity); err == nil {
		slog.InfoContext(ctx, "Audio track already exists for participant")
		return nil
	} else if !errors.Is(err, recordings.ErrTrackNotFound) {
		return err
	}

	key := idempotency.TrackEgressKey(rec.ID, p.Identity)
	acquired, err := h.guard.Acquire(ctx, key, h.cfg.LeaseTTL)
	if err != nil {
		return fmt.Errorf("acquiring track egress lease: %w", err)
	}
	if !acquired {
		slog.InfoContext(ctx, "Speaker egress start already in flight")
		return nil
	}

	output := h.outputs.Track(meetingID)
	var info *egress.Info
	if trackSID != nil {
		info, err = h.egress.StartTrackEgress(ctx, meetingID, *trackSID, output)
	} else {
		info, err = h.egress.StartParticipantEgress(ctx, meetingID, p.Identity, output)
	}
	if err != nil {
		h.release(ctx, key)
		slog.ErrorContext(ctx, "Failed to start speaker egress", logging.ErrKey, err)
		return nil
	}

	track := &models.ParticipantAudioTrack{
		RecordingID:         rec.ID,
		ParticipantIdentity: p.Identity,
		ParticipantName:     h.displayName(ctx, p),
		TrackSID:            trackSID,
		EgressID:            info.EgressID,
		Status:              models.RecordingStatusRecording,
	}
	if err := h.recordings.CreateTrack(ctx, track); err != nil {
		h.stopOrphan(ctx, info.EgressID)
		if errors.Is(err, recordings.ErrAlreadyExists) {
			return nil
		}
		return err
	}

	slog.InfoContext(ctx, "Started speaker egress", "audio_track_id", track.ID, "egress_id", track.EgressID)
	events.Emit(ctx, h.publisher, events.Event{
		Type:        events.TypeTrackStarted,
		MeetingID:   meetingID,
		RecordingID: rec.ID,
		TrackID:     track.ID,
		EgressID:    track.EgressID,
		Data:        map[string]interface{}{"participant_identity": p.Identity},
	})
	return nil
}

// displayName prefers the name in the event, then the user directory, then the identity
func (h *Handlers) displayName(ctx context.Context, p *webhook.Participant) string {
	if p.Name != "" {
		return p.Name
	}
	name, err := h.meetings.ResolveDisplayName(ctx, p.Identity)
	if err != nil {
		slog.WarnContext(ctx, "Failed to resolve display name", logging.ErrKey, err)
	}
	if name != "" {
		return name
	}
	return p.Identity
}
