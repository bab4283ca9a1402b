package analysis

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/killallgit/meeting-recorder/internal/logging"
	"github.com/killallgit/meeting-recorder/internal/models"
	"github.com/killallgit/meeting-recorder/internal/services/meetings"
	"github.com/killallgit/meeting-recorder/internal/services/recordings"
	"github.com/killallgit/meeting-recorder/pkg/config"
	apperrors "github.com/killallgit/meeting-recorder/pkg/errors"
)

var _ Service = (*ServiceImpl)(nil)

// ServiceImpl implements Service
type ServiceImpl struct {
	repo        Repository
	recordings  recordings.Repository
	meetings    meetings.Directory
	llm         LLMClient
	prompts     []Prompt
	temperature float64
	maxTokens   int
}

// NewService creates the analysis service. Prompts without an ID are ignored.
func NewService(repo Repository, recs recordings.Repository, directory meetings.Directory, llm LLMClient, catalog []config.PromptConfig, llmCfg config.LLMConfig) *ServiceImpl {
	prompts := make([]Prompt, 0, len(catalog))
	for _, p := range catalog {
		if p.ID == "" {
			continue
		}
		prompts = append(prompts, Prompt{ID: p.ID, Title: p.Title, Text: p.Text})
	}
	temperature := DefaultTemperature
	if llmCfg.Temperature != nil {
		temperature = *llmCfg.Temperature
	}
	maxTokens := llmCfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &ServiceImpl{
		repo:        repo,
		recordings:  recs,
		meetings:    directory,
		llm:         llm,
		prompts:     prompts,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

func (s *ServiceImpl) ListPrompts() []Prompt {
	out := make([]Prompt, len(s.prompts))
	copy(out, s.prompts)
	return out
}

func (s *ServiceImpl) findPrompt(id string) (Prompt, bool) {
	for _, p := range s.prompts {
		if p.ID == id {
			return p, true
		}
	}
	return Prompt{}, false
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

// RunPrompt executes one catalog prompt against a completed track transcript.
// The run row is written before the model is called so a failure is kept too.
func (s *ServiceImpl) RunPrompt(ctx context.Context, req RunPromptRequest) (*models.PromptRun, error) {
	if req.AudioTrackID == "" {
		return nil, apperrors.MissingFieldError("audio_track_id")
	}
	if req.PromptID == "" {
		return nil, apperrors.MissingFieldError("prompt_id")
	}
	if err := s.requireParticipant(ctx, req.MeetingID, req.UserID); err != nil {
		return nil, err
	}

	rec, err := s.recordings.GetRecordingByMeetingID(ctx, req.MeetingID)
	if err != nil {
		if errors.Is(err, recordings.ErrRecordingNotFound) {
			return nil, apperrors.NotFound("recording", req.MeetingID)
		}
		return nil, apperrors.DatabaseError("get recording", err)
	}

	track, err := s.recordings.GetTrackByID(ctx, req.AudioTrackID)
	if err != nil && !errors.Is(err, recordings.ErrTrackNotFound) {
		return nil, apperrors.DatabaseError("get audio track", err)
	}
	if track == nil || track.RecordingID != rec.ID {
		return nil, apperrors.NotFound("audio track", req.AudioTrackID)
	}

	if track.Transcription.Status != models.TranscriptionStatusCompleted {
		return nil, apperrors.ValidationError("audio_track_id", "transcription is not completed")
	}
	text := track.Transcription.Text()
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.ValidationError("audio_track_id", "transcript is empty")
	}

	prompt, ok := s.findPrompt(req.PromptID)
	if !ok {
		return nil, apperrors.NotFound("prompt", req.PromptID)
	}

	run := &models.PromptRun{
		RecordingID:     rec.ID,
		AudioTrackID:    track.ID,
		UserID:          req.UserID,
		PromptID:        prompt.ID,
		PromptTitle:     prompt.Title,
		PromptText:      prompt.Text,
		ParticipantName: track.ParticipantName,
		TranscriptText:  text,
		Status:          models.PromptRunStatusProcessing,
	}
	if err := s.repo.CreateRun(ctx, run); err != nil {
		return nil, apperrors.DatabaseError("create prompt run", err)
	}

	ctx = logging.AppendCtx(ctx, slog.String("prompt_run_id", run.ID), slog.String("prompt_id", prompt.ID))
	answer, llmErr := s.llm.Chat(ctx, prompt.Text, transcriptPreamble+text, ChatOptions{
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})

	// The outcome is persisted even when the caller has gone away
	saveCtx := context.WithoutCancel(ctx)
	if llmErr != nil {
		msg := llmErr.Error()
		if _, err := s.repo.FinishRun(saveCtx, run.ID, models.PromptRunStatusFailed, nil, &msg); err != nil {
			slog.ErrorContext(ctx, "failed to record prompt run failure", logging.ErrKey, err)
		}
		slog.WarnContext(ctx, "prompt run failed", logging.ErrKey, llmErr)
		return nil, apperrors.ExternalServiceError("llm", llmErr).WithDetail("prompt_run_id", run.ID)
	}

	if _, err := s.repo.FinishRun(saveCtx, run.ID, models.PromptRunStatusCompleted, &answer, nil); err != nil {
		return nil, apperrors.DatabaseError("complete prompt run", err)
	}
	run.Status = models.PromptRunStatusCompleted
	run.Result = &answer

	slog.InfoContext(ctx, "prompt run completed", "recording_id", rec.ID, "audio_track_id", track.ID)
	return run, nil
}

// ListRuns returns the runs of the meeting's recording, newest first.
// A meeting without a recording has no runs.
func (s *ServiceImpl) ListRuns(ctx context.Context, meetingID, userID string) ([]models.PromptRun, error) {
	if err := s.requireParticipant(ctx, meetingID, userID); err != nil {
		return nil, err
	}

	rec, err := s.recordings.GetRecordingByMeetingID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, recordings.ErrRecordingNotFound) {
			return []models.PromptRun{}, nil
		}
		return nil, apperrors.DatabaseError("get recording", err)
	}

	runs, err := s.repo.ListRunsByRecording(ctx, rec.ID)
	if err != nil {
		return nil, apperrors.DatabaseError("list prompt runs", err)
	}
	if runs == nil {
		runs = []models.PromptRun{}
	}
	return runs, nil
}
