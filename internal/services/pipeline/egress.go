package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/killallgit/meeting-recorder/internal/models"
	"github.com/killallgit/meeting-recorder/internal/services/events"
	"github.com/killallgit/meeting-recorder/internal/services/jobs"
	"github.com/killallgit/meeting-recorder/internal/services/recordings"
	"github.com/killallgit/meeting-recorder/internal/services/webhook"
	"gorm.io/gorm"
)

// EgressEnded stores the outcome of a composite or speaker egress. The
// terminal transition and the transcription enqueue commit together, and a
// redelivered event finds the row already terminal and changes nothing.
func (h *Handlers) EgressEnded(ctx context.Context, e *webhook.Event) error {
	info := e.EgressInfo
	if info == nil || info.EgressID == "" {
		return nil
	}

	result := egressResult(info)
	if result.Status == models.RecordingStatusFailed {
		slog.ErrorContext(ctx, "Egress failed", "egress_error", info.Error, "egress_status", info.Status)
	}

	var (
		target       recordings.EgressTarget
		transitioned bool
		job          *models.Job
	)
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := h.recordings.WithTx(tx)

		var err error
		target, err = repo.ResolveEgressTarget(ctx, info.EgressID)
		if err != nil || target.Kind == recordings.TargetUnknown {
			return err
		}

		transitioned, err = repo.ApplyEgressResult(ctx, target, result)
		if err != nil || !transitioned || target.Kind != recordings.TargetTrack {
			return err
		}

		track := target.Track
		if track.Status != models.RecordingStatusReady || track.FilePath == nil || *track.FilePath == "" {
			return nil
		}

		rec, err := repo.GetRecordingByID(ctx, track.RecordingID)
		if err != nil {
			return fmt.Errorf("loading recording of track: %w", err)
		}
		payload := models.TranscriptionJob{
			AudioTrackID:        track.ID,
			MeetingID:           rec.MeetingID,
			RecordingID:         rec.ID,
			ParticipantIdentity: track.ParticipantIdentity,
			ParticipantName:     track.ParticipantName,
			FilePath:            *track.FilePath,
		}
		job, _, err = h.jobs.WithTx(tx).EnqueueUniqueJob(ctx, models.JobTypeTranscription, payload.Payload(), payload.UniqueKey(),
			jobs.WithMaxAttempts(h.cfg.TranscriptionAttempts),
			jobs.WithBackoff(h.cfg.TranscriptionBackoff),
			jobs.WithRemoveOnComplete(),
			jobs.WithCreatedBy("egress_ended"),
		)
		if err != nil {
			return fmt.Errorf("queueing transcription: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("applying egress result: %w", err)
	}

	switch {
	case target.Kind == recordings.TargetUnknown:
		slog.InfoContext(ctx, "No recording or track for egress, dropping event")
		return nil
	case !transitioned:
		slog.InfoContext(ctx, "Egress result already applied", "target", target.Kind)
		return nil
	}

	h.announce(ctx, target)
	if job != nil {
		slog.InfoContext(ctx, "Queued transcription job", "audio_track_id", target.Track.ID, "job_id", job.ID)
	}
	return nil
}

func (h *Handlers) announce(ctx context.Context, target recordings.EgressTarget) {
	event := events.Event{EgressID: target.EgressID()}
	var status models.RecordingStatus
	switch target.Kind {
	case recordings.TargetComposite:
		event.RecordingID = target.Recording.ID
		event.MeetingID = target.Recording.MeetingID
		status = target.Recording.Status
		slog.InfoContext(ctx, "Updated composite recording", "recording_id", target.Recording.ID, "status", status)
	case recordings.TargetTrack:
		event.RecordingID = target.Track.RecordingID
		event.TrackID = target.Track.ID
		status = target.Track.Status
		if rec, err := h.recordings.GetRecordingByID(ctx, target.Track.RecordingID); err == nil {
			event.MeetingID = rec.MeetingID
		}
		event.Data = map[string]interface{}{"participant_identity": target.Track.ParticipantIdentity}
		slog.InfoContext(ctx, "Updated audio track", "audio_track_id", target.Track.ID, "status", status)
	}

	event.Type = events.TypeRecordingReady
	if status == models.RecordingStatusFailed {
		event.Type = events.TypeRecordingFailed
	}
	events.Emit(ctx, h.publisher, event)
}

// egressResult maps the egress description onto the stored fields. An error
// string or a failed/aborted status always means failed, even with files.
func egressResult(info *webhook.EgressInfo) recordings.EgressResult {
	result := recordings.EgressResult{Status: models.RecordingStatusReady}
	if info.Error != "" || info.Status == webhook.EgressFailed || info.Status == webhook.EgressAborted {
		result.Status = models.RecordingStatusFailed
	}

	f := info.FirstFile()
	if f == nil {
		return result
	}
	if f.Filename != "" {
		path := f.Filename
		result.FilePath = &path
	}
	if f.Size > 0 {
		size := f.Size
		result.FileSize = &size
	}
	if f.Duration > 0 {
		seconds := int(f.Duration / 1_000_000_000)
		result.Duration = &seconds
	}
	return result
}
