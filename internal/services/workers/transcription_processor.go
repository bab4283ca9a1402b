package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/killallgit/meeting-recorder/internal/logging"
	"github.com/killallgit/meeting-recorder/internal/models"
	"github.com/killallgit/meeting-recorder/internal/services/events"
	"github.com/killallgit/meeting-recorder/internal/services/jobs"
	"github.com/killallgit/meeting-recorder/internal/services/recordings"
	"github.com/killallgit/meeting-recorder/internal/services/storage"
	"github.com/killallgit/meeting-recorder/internal/services/transcription"
)

// TranscriptionProcessor turns a finished participant track into transcript segments
type TranscriptionProcessor struct {
	jobService  jobs.Service
	tracks      recordings.Repository
	store       storage.ObjectStore
	transcriber transcription.Service
	publisher   events.Publisher
	tempDir     string
}

// NewTranscriptionProcessor creates a new transcription processor
func NewTranscriptionProcessor(
	jobService jobs.Service,
	tracks recordings.Repository,
	store storage.ObjectStore,
	transcriber transcription.Service,
	publisher events.Publisher,
	tempDir string,
) *TranscriptionProcessor {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &TranscriptionProcessor{
		jobService:  jobService,
		tracks:      tracks,
		store:       store,
		transcriber: transcriber,
		publisher:   publisher,
		tempDir:     tempDir,
	}
}

// CanProcess returns true for transcription jobs
func (p *TranscriptionProcessor) CanProcess(jobType models.JobType) bool {
	return jobType == models.JobTypeTranscription
}

// ProcessJob transcribes one track. The track shows processing until the
// attempt that the queue will not retry, so readers never see a failed
// status flicker back to processing.
func (p *TranscriptionProcessor) ProcessJob(ctx context.Context, job *models.Job) error {
	var payload models.TranscriptionJob
	if err := job.DecodePayload(&payload); err != nil || payload.AudioTrackID == "" {
		return models.NewNotFoundError("invalid_payload", "transcription job has no audio track", fmt.Sprint(err), err)
	}

	ctx = logging.AppendCtx(ctx,
		slog.String("track_id", payload.AudioTrackID),
		slog.String("meeting_id", payload.MeetingID),
	)

	track, err := p.tracks.GetTrackByID(ctx, payload.AudioTrackID)
	if err != nil {
		if errors.Is(err, recordings.ErrTrackNotFound) {
			return models.NewNotFoundError("track_not_found", "audio track no longer exists", payload.AudioTrackID, err)
		}
		return models.NewSystemError("track_lookup", "failed to load audio track", "", err)
	}

	if err := p.tracks.SetTrackTranscription(ctx, track.ID, models.ProcessingTranscription()); err != nil {
		return models.NewSystemError("transcription_write", "failed to mark transcription processing", "", err)
	}
	p.progress(ctx, job.ID, 10)

	segments, err := p.transcribe(ctx, job, payload, track)
	if err != nil {
		p.recordFailure(ctx, job, payload, err)
		return err
	}

	if err := p.tracks.SetTrackTranscription(ctx, track.ID, models.CompletedTranscription(segments)); err != nil {
		return models.NewSystemError("transcription_write", "failed to store transcription", "", err)
	}

	result := models.JobResult{
		"audioTrackId": track.ID,
		"segments":     len(segments),
		"characters":   len(models.CompletedTranscription(segments).Text()),
	}
	if err := p.jobService.CompleteJob(ctx, job.ID, result); err != nil {
		slog.ErrorContext(ctx, "failed to complete job", logging.ErrKey, err)
	}

	events.Emit(ctx, p.publisher, events.Event{
		Type:        events.TypeTranscriptionCompleted,
		MeetingID:   payload.MeetingID,
		RecordingID: payload.RecordingID,
		TrackID:     track.ID,
		Data:        map[string]interface{}{"segments": len(segments)},
	})
	slog.InfoContext(ctx, "Transcription completed", "segments", len(segments))
	return nil
}

func (p *TranscriptionProcessor) transcribe(ctx context.Context, job *models.Job, payload models.TranscriptionJob, track *models.ParticipantAudioTrack) ([]models.Segment, error) {
	key := payload.FilePath
	if key == "" && track.FilePath != nil {
		key = *track.FilePath
	}
	if key == "" {
		return nil, models.NewNotFoundError("no_file", "audio track has no file", track.ID, nil)
	}

	workDir, err := os.MkdirTemp(p.tempDir, "transcription-")
	if err != nil {
		return nil, models.NewSystemError("temp_dir", "failed to create work directory", "", err)
	}
	defer os.RemoveAll(workDir)

	local := filepath.Join(workDir, "input"+filepath.Ext(key))
	if err := p.store.Download(ctx, key, local); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, models.NewNotFoundError("object_not_found", "audio file is missing from storage", key, err)
		}
		return nil, models.NewDownloadError("download_failed", "failed to download audio", err.Error(), err)
	}
	p.progress(ctx, job.ID, 40)

	segments, err := p.transcriber.Transcribe(ctx, local)
	if err != nil {
		return nil, models.NewProcessingError("transcription_failed", err.Error(), "", err)
	}
	p.progress(ctx, job.ID, 90)
	return segments, nil
}

// recordFailure writes the terminal failed status only when no retry will follow
func (p *TranscriptionProcessor) recordFailure(ctx context.Context, job *models.Job, payload models.TranscriptionJob, cause error) {
	var structured *models.StructuredJobError
	permanent := errors.As(cause, &structured) && structured.Type == models.ErrorTypeNotFound
	if !permanent && !job.IsFinalAttempt() {
		slog.WarnContext(ctx, "Transcription attempt failed, will retry", logging.ErrKey, cause)
		return
	}
	p.markFailed(context.WithoutCancel(ctx), payload, cause.Error())
}

// HandleAbandoned fails the track of a job whose last attempt died with its worker
func (p *TranscriptionProcessor) HandleAbandoned(ctx context.Context, job *models.Job) {
	var payload models.TranscriptionJob
	if err := job.DecodePayload(&payload); err != nil || payload.AudioTrackID == "" {
		slog.WarnContext(ctx, "abandoned transcription job has no audio track", "job_id", job.ID)
		return
	}
	ctx = logging.AppendCtx(ctx,
		slog.String("track_id", payload.AudioTrackID),
		slog.String("meeting_id", payload.MeetingID),
	)
	reason := job.Error
	if reason == "" {
		reason = "worker timed out"
	}
	p.markFailed(ctx, payload, reason)
}

func (p *TranscriptionProcessor) markFailed(ctx context.Context, payload models.TranscriptionJob, reason string) {
	if err := p.tracks.SetTrackTranscription(ctx, payload.AudioTrackID, models.FailedTranscription(reason)); err != nil &&
		!errors.Is(err, recordings.ErrTrackNotFound) {
		slog.ErrorContext(ctx, "failed to store transcription failure", logging.ErrKey, err)
	}
	events.Emit(ctx, p.publisher, events.Event{
		Type:        events.TypeTranscriptionFailed,
		MeetingID:   payload.MeetingID,
		RecordingID: payload.RecordingID,
		TrackID:     payload.AudioTrackID,
		Data:        map[string]interface{}{"error": reason},
	})
	slog.ErrorContext(ctx, "Transcription failed", "reason", reason, logging.PriorityCritical())
}

func (p *TranscriptionProcessor) progress(ctx context.Context, jobID uint, pct int) {
	if err := p.jobService.UpdateProgress(ctx, jobID, pct); err != nil {
		slog.DebugContext(ctx, "failed to update job progress", logging.ErrKey, err)
	}
}
