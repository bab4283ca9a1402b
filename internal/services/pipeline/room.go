package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/killallgit/meeting-recorder/internal/logging"
	"github.com/killallgit/meeting-recorder/internal/models"
	"github.com/killallgit/meeting-recorder/internal/services/events"
	"github.com/killallgit/meeting-recorder/internal/services/idempotency"
	"github.com/killallgit/meeting-recorder/internal/services/meetings"
	"github.com/killallgit/meeting-recorder/internal/services/recordings"
	"github.com/killallgit/meeting-recorder/internal/services/webhook"
)

// RoomStarted starts the composite recording of a scheduled meeting.
// Rooms without a meeting and meetings that already have a recording are ignored.
func (h *Handlers) RoomStarted(ctx context.Context, e *webhook.Event) error {
	meetingID := e.RoomName()
	if meetingID == "" {
		return nil
	}

	if _, err := h.meetings.GetMeeting(ctx, meetingID); err != nil {
		if errors.Is(err, meetings.ErrMeetingNotFound) {
			slog.InfoContext(ctx, "Meeting not found for room")
			return nil
		}
		return err
	}

	if err := h.meetings.MarkActive(ctx, meetingID); err != nil {
		slog.WarnContext(ctx, "Failed to mark meeting active", logging.ErrKey, err)
	}

	if _, err := h.recordings.GetRecordingByMeetingID(ctx, meetingID); err == nil {
		slog.InfoContext(ctx, "Recording already exists for meeting")
		return nil
	} else if !errors.Is(err, recordings.ErrRecordingNotFound) {
		return err
	}

	key := idempotency.RoomEgressKey(meetingID)
	acquired, err := h.guard.Acquire(ctx, key, h.cfg.LeaseTTL)
	if err != nil {
		return fmt.Errorf("acquiring room egress lease: %w", err)
	}
	if !acquired {
		slog.InfoContext(ctx, "Composite egress start already in flight")
		return nil
	}

	info, err := h.egress.StartRoomCompositeEgress(ctx, meetingID, h.outputs.Composite(meetingID))
	if err != nil {
		h.release(ctx, key)
		slog.ErrorContext(ctx, "Failed to start composite egress", logging.ErrKey, err)
		return nil
	}

	rec := &models.Recording{MeetingID: meetingID, EgressID: info.EgressID, Status: models.RecordingStatusRecording}
	if err := h.recordings.CreateRecording(ctx, rec); err != nil {
		h.stopOrphan(ctx, info.EgressID)
		if errors.Is(err, recordings.ErrAlreadyExists) {
			return nil
		}
		return err
	}

	slog.InfoContext(ctx, "Auto-started composite recording", "recording_id", rec.ID, "egress_id", rec.EgressID)
	events.Emit(ctx, h.publisher, events.Event{
		Type:        events.TypeRecordingStarted,
		MeetingID:   meetingID,
		RecordingID: rec.ID,
		EgressID:    rec.EgressID,
	})
	return nil
}

// RoomFinished announces the end of a meeting's room. Recordings finish on
// their own egress_ended events, so nothing is written here.
func (h *Handlers) RoomFinished(ctx context.Context, e *webhook.Event) error {
	meetingID := e.RoomName()
	if meetingID == "" {
		return nil
	}

	if _, err := h.meetings.GetMeeting(ctx, meetingID); err != nil {
		if !errors.Is(err, meetings.ErrMeetingNotFound) {
			slog.WarnContext(ctx, "Meeting lookup failed for finished room", logging.ErrKey, err)
		} else {
			slog.InfoContext(ctx, "Meeting not found for room")
		}
		return nil
	}

	slog.InfoContext(ctx, "Room finished for meeting")
	event := events.Event{Type: events.TypeRoomFinished, MeetingID: meetingID}
	if rec, err := h.recordings.GetRecordingByMeetingID(ctx, meetingID); err == nil {
		event.RecordingID = rec.ID
		event.Data = map[string]interface{}{"recording_status": rec.Status}
	}
	events.Emit(ctx, h.publisher, event)
	return nil
}
