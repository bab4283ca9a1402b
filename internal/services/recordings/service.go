package recordings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/killallgit/meeting-recorder/internal/logging"
	"github.com/killallgit/meeting-recorder/internal/models"
	"github.com/killallgit/meeting-recorder/internal/services/egress"
	"github.com/killallgit/meeting-recorder/internal/services/events"
	"github.com/killallgit/meeting-recorder/internal/services/idempotency"
	"github.com/killallgit/meeting-recorder/internal/services/meetings"
	"github.com/killallgit/meeting-recorder/internal/services/storage"
	apperrors "github.com/killallgit/meeting-recorder/pkg/errors"
)

// ServiceConfig carries the optional knobs of the management service
type ServiceConfig struct {
	URLTTL   time.Duration
	LeaseTTL time.Duration
}

var _ Service = (*ServiceImpl)(nil)

// ServiceImpl implements Service
type ServiceImpl struct {
	repo      Repository
	meetings  meetings.Directory
	egress    egress.Client
	outputs   *egress.OutputBuilder
	store     storage.ObjectStore
	guard     idempotency.Guard
	publisher events.Publisher
	urlTTL    time.Duration
	leaseTTL  time.Duration
}

// NewService creates the recording management service
func NewService(
	repo Repository,
	directory meetings.Directory,
	egressClient egress.Client,
	outputs *egress.OutputBuilder,
	store storage.ObjectStore,
	guard idempotency.Guard,
	publisher events.Publisher,
	cfg ServiceConfig,
) *ServiceImpl {
	if cfg.URLTTL <= 0 {
		cfg.URLTTL = DefaultURLTTL
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = 30 * time.Second
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &ServiceImpl{
		repo:      repo,
		meetings:  directory,
		egress:    egressClient,
		outputs:   outputs,
		store:     store,
		guard:     guard,
		publisher: publisher,
		urlTTL:    cfg.URLTTL,
		leaseTTL:  cfg.LeaseTTL,
	}
}

// requireOwner loads the meeting and checks userID owns it
func (s *ServiceImpl) requireOwner(ctx context.Context, meetingID, userID, action string) (*models.Meeting, error) {
	meeting, err := s.meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		if errors.Is(err, meetings.ErrMeetingNotFound) {
			return nil, apperrors.NotFound("meeting", meetingID)
		}
		return nil, apperrors.DatabaseError("get meeting", err)
	}
	if meeting.OwnerID != userID {
		return nil, apperrors.Forbidden(fmt.Sprintf("only the host can %s", action))
	}
	return meeting, nil
}

func (s *ServiceImpl) requireParticipant(ctx context.Context, meetingID, userID string) error {
	ok, err := s.meetings.IsParticipant(ctx, meetingID, userID)
	if err != nil {
		if errors.Is(err, meetings.ErrMeetingNotFound) {
			return apperrors.NotFound("meeting", meetingID)
		}
		return apperrors.DatabaseError("check participant", err)
	}
	if !ok {
		return apperrors.Forbidden("not a participant of this meeting")
	}
	return nil
}

// StartRecording starts the composite egress of a meeting on behalf of its host
func (s *ServiceImpl) StartRecording(ctx context.Context, meetingID, userID string) (*models.Recording, error) {
	meeting, err := s.requireOwner(ctx, meetingID, userID, "start recording")
	if err != nil {
		return nil, err
	}
	if !meeting.IsOpen() {
		return nil, apperrors.Conflict("meeting has ended")
	}

	if existing, err := s.repo.GetRecordingByMeetingID(ctx, meetingID); err == nil {
		if existing.Status == models.RecordingStatusRecording {
			return nil, apperrors.Conflict("recording already in progress").WithDetail("recording_id", existing.ID)
		}
		return nil, apperrors.Conflict("meeting already has a recording").WithDetail("recording_id", existing.ID)
	} else if !errors.Is(err, ErrRecordingNotFound) {
		return nil, apperrors.DatabaseError("get recording", err)
	}

	key := idempotency.RoomEgressKey(meetingID)
	acquired, err := s.guard.Acquire(ctx, key, s.leaseTTL)
	if err != nil {
		return nil, apperrors.DatabaseError("acquire lease", err)
	}
	if !acquired {
		return nil, apperrors.Conflict("recording is already being started")
	}

	info, err := s.egress.StartRoomCompositeEgress(ctx, meetingID, s.outputs.Composite(meetingID))
	if err != nil {
		s.release(ctx, key)
		return nil, apperrors.ExternalServiceError("egress", err)
	}

	rec := &models.Recording{MeetingID: meetingID, EgressID: info.EgressID, Status: models.RecordingStatusRecording}
	if err := s.repo.CreateRecording(ctx, rec); err != nil {
		s.stopOrphan(ctx, info.EgressID)
		if errors.Is(err, ErrAlreadyExists) {
			return nil, apperrors.Conflict("meeting already has a recording")
		}
		return nil, apperrors.DatabaseError("create recording", err)
	}

	slog.InfoContext(ctx, "Recording started by host", "meeting_id", meetingID, "egress_id", info.EgressID, "user_id", userID)
	events.Emit(ctx, s.publisher, events.Event{
		Type:        events.TypeRecordingStarted,
		MeetingID:   meetingID,
		RecordingID: rec.ID,
		EgressID:    rec.EgressID,
	})
	return rec, nil
}

// StopRecording stops the active composite egress and marks the recording processing
func (s *ServiceImpl) StopRecording(ctx context.Context, meetingID, userID string) (*models.Recording, error) {
	if _, err := s.requireOwner(ctx, meetingID, userID, "stop recording"); err != nil {
		return nil, err
	}

	rec, err := s.repo.GetRecordingByMeetingID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, ErrRecordingNotFound) {
			return nil, apperrors.NotFound("recording", meetingID)
		}
		return nil, apperrors.DatabaseError("get recording", err)
	}
	if rec.Status != models.RecordingStatusRecording {
		return nil, apperrors.Conflict("no active recording").WithDetail("status", rec.Status)
	}

	if err := s.stop(ctx, rec); err != nil {
		return nil, err
	}
	return s.repo.GetRecordingByID(ctx, rec.ID)
}

// stop ends the egress and moves the row to processing unless egress_ended won the race
func (s *ServiceImpl) stop(ctx context.Context, rec *models.Recording) error {
	if _, err := s.egress.StopEgress(ctx, rec.EgressID); err != nil {
		var egressErr *egress.Error
		if !errors.As(err, &egressErr) || !egressErr.IsNotFound() {
			return apperrors.ExternalServiceError("egress", err)
		}
		slog.WarnContext(ctx, "Egress already gone", "egress_id", rec.EgressID)
	}

	if _, err := s.repo.UpdateRecordingStatus(ctx, rec.ID, models.RecordingStatusProcessing, models.RecordingStatusRecording); err != nil {
		return apperrors.DatabaseError("update recording", err)
	}
	slog.InfoContext(ctx, "Recording stopped", "meeting_id", rec.MeetingID, "egress_id", rec.EgressID)
	return nil
}

// GetMeetingRecording returns the recording of a meeting with its tracks
func (s *ServiceImpl) GetMeetingRecording(ctx context.Context, meetingID, userID string) (*MeetingRecording, error) {
	if err := s.requireParticipant(ctx, meetingID, userID); err != nil {
		return nil, err
	}

	rec, err := s.repo.GetRecordingByMeetingID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, ErrRecordingNotFound) {
			return nil, apperrors.NotFound("recording", meetingID)
		}
		return nil, apperrors.DatabaseError("get recording", err)
	}

	tracks, err := s.repo.ListTracks(ctx, rec.ID)
	if err != nil {
		return nil, apperrors.DatabaseError("list tracks", err)
	}

	out := &MeetingRecording{Recording: rec, AudioTracks: tracks}
	if rec.IsPlayable() {
		url, err := s.store.PresignGet(ctx, *rec.FilePath, s.urlTTL)
		if err != nil {
			slog.WarnContext(ctx, "Failed to presign recording", logging.ErrKey, err, "recording_id", rec.ID)
		} else {
			out.URL = url
			out.ExpiresIn = int(s.urlTTL.Seconds())
		}
	}
	return out, nil
}

// GetTrackTranscript returns the track of a meeting participant once its transcript exists
func (s *ServiceImpl) GetTrackTranscript(ctx context.Context, meetingID, trackID, userID string) (*models.ParticipantAudioTrack, error) {
	if err := s.requireParticipant(ctx, meetingID, userID); err != nil {
		return nil, err
	}

	rec, err := s.repo.GetRecordingByMeetingID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, ErrRecordingNotFound) {
			return nil, apperrors.NotFound("recording", meetingID)
		}
		return nil, apperrors.DatabaseError("get recording", err)
	}

	track, err := s.repo.GetTrackByID(ctx, trackID)
	if err != nil {
		if errors.Is(err, ErrTrackNotFound) {
			return nil, apperrors.NotFound("audio track", trackID)
		}
		return nil, apperrors.DatabaseError("get track", err)
	}
	if track.RecordingID != rec.ID {
		return nil, apperrors.NotFound("audio track", trackID)
	}
	if track.Transcription.Status != models.TranscriptionStatusCompleted {
		return nil, apperrors.Conflict("transcription is not completed").WithDetail("status", track.Transcription.Status)
	}
	return track, nil
}

// SignedURL returns a presigned download link for a ready recording
func (s *ServiceImpl) SignedURL(ctx context.Context, recordingID, userID string) (*SignedURL, error) {
	rec, err := s.repo.GetRecordingByID(ctx, recordingID)
	if err != nil {
		if errors.Is(err, ErrRecordingNotFound) {
			return nil, apperrors.NotFound("recording", recordingID)
		}
		return nil, apperrors.DatabaseError("get recording", err)
	}
	if err := s.requireParticipant(ctx, rec.MeetingID, userID); err != nil {
		return nil, err
	}
	if !rec.IsPlayable() {
		return nil, apperrors.Conflict("recording is not ready").WithDetail("status", rec.Status)
	}

	url, err := s.store.PresignGet(ctx, *rec.FilePath, s.urlTTL)
	if err != nil {
		return nil, apperrors.ExternalServiceError("storage", err)
	}
	return &SignedURL{URL: url, ExpiresIn: int(s.urlTTL.Seconds())}, nil
}

// DeleteRecording removes the stored files and then the rows. Rows stay when
// the object store fails so the request can be repeated.
func (s *ServiceImpl) DeleteRecording(ctx context.Context, recordingID, userID string) error {
	rec, err := s.repo.GetRecordingByID(ctx, recordingID)
	if err != nil {
		if errors.Is(err, ErrRecordingNotFound) {
			return apperrors.NotFound("recording", recordingID)
		}
		return apperrors.DatabaseError("get recording", err)
	}
	if _, err := s.requireOwner(ctx, rec.MeetingID, userID, "delete the recording"); err != nil {
		return err
	}
	if rec.Status == models.RecordingStatusRecording {
		return apperrors.Conflict("stop the recording before deleting it")
	}

	tracks, err := s.repo.ListTracks(ctx, rec.ID)
	if err != nil {
		return apperrors.DatabaseError("list tracks", err)
	}

	var keys []string
	if rec.FilePath != nil {
		keys = append(keys, *rec.FilePath)
	}
	for _, t := range tracks {
		if t.FilePath != nil {
			keys = append(keys, *t.FilePath)
		}
	}
	if len(keys) > 0 {
		if err := s.store.Delete(ctx, keys...); err != nil {
			return apperrors.ExternalServiceError("storage", err)
		}
	}

	if err := s.repo.DeleteRecording(ctx, rec.ID); err != nil {
		if errors.Is(err, ErrRecordingNotFound) {
			return apperrors.NotFound("recording", recordingID)
		}
		return apperrors.DatabaseError("delete recording", err)
	}
	slog.InfoContext(ctx, "Recording deleted", "recording_id", rec.ID, "meeting_id", rec.MeetingID, "objects", len(keys))
	return nil
}

// EndMeeting stops an active recording and closes the meeting
func (s *ServiceImpl) EndMeeting(ctx context.Context, meetingID, userID string) error {
	if _, err := s.requireOwner(ctx, meetingID, userID, "end the meeting"); err != nil {
		return err
	}

	rec, err := s.repo.GetRecordingByMeetingID(ctx, meetingID)
	switch {
	case err == nil && rec.Status == models.RecordingStatusRecording:
		if err := s.stop(ctx, rec); err != nil {
			slog.WarnContext(ctx, "Failed to stop recording while ending meeting",
				logging.ErrKey, err, "meeting_id", meetingID, "egress_id", rec.EgressID)
		}
	case err != nil && !errors.Is(err, ErrRecordingNotFound):
		return apperrors.DatabaseError("get recording", err)
	}

	if err := s.meetings.EndMeeting(ctx, meetingID); err != nil {
		return apperrors.DatabaseError("end meeting", err)
	}
	slog.InfoContext(ctx, "Meeting ended by host", "meeting_id", meetingID, "user_id", userID)
	return nil
}

func (s *ServiceImpl) release(ctx context.Context, key string) {
	if err := s.guard.Release(context.WithoutCancel(ctx), key); err != nil {
		slog.WarnContext(ctx, "Failed to release lease", logging.ErrKey, err, "key", key)
	}
}

func (s *ServiceImpl) stopOrphan(ctx context.Context, egressID string) {
	if _, err := s.egress.StopEgress(context.WithoutCancel(ctx), egressID); err != nil {
		slog.ErrorContext(ctx, "Failed to stop orphaned egress", logging.ErrKey, err, "egress_id", egressID)
		return
	}
	slog.WarnContext(ctx, "Stopped orphaned egress", "egress_id", egressID)
}
