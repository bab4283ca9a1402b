package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/killallgit/meeting-recorder/internal/database"
	"github.com/killallgit/meeting-recorder/internal/models"
	"github.com/killallgit/meeting-recorder/internal/services/meetings"
	"github.com/killallgit/meeting-recorder/internal/services/recordings"
	"github.com/killallgit/meeting-recorder/pkg/config"
	apperrors "github.com/killallgit/meeting-recorder/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatCall struct {
	System string
	User   string
	Opts   ChatOptions
}

type fakeLLM struct {
	mu     sync.Mutex
	calls  []chatCall
	answer string
	err    error
}

func (f *fakeLLM) Chat(_ context.Context, system, user string, opts ChatOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, chatCall{System: system, User: user, Opts: opts})
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type fixture struct {
	svc   *ServiceImpl
	repo  Repository
	recs  recordings.Repository
	llm   *fakeLLM
	rec   *models.Recording
	track *models.ParticipantAudioTrack
}

var catalog = []config.PromptConfig{
	{ID: "summary", Title: "Summary", Text: "Summarize the speaker's points."},
	{ID: "", Title: "Broken", Text: "ignored"},
	{ID: "action-items", Title: "Action items", Text: "List action items."},
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Initialize(config.DatabaseConfig{
		Driver:            database.DriverSQLite,
		Path:              ":memory:",
		EnableForeignKeys: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Create(&models.Meeting{ID: "m-1", OwnerID: "u-host", Status: models.MeetingStatusEnded}).Error)
	require.NoError(t, db.Create(&models.MeetingParticipant{MeetingID: "m-1", UserID: "u-guest"}).Error)
	require.NoError(t, db.Create(&models.Meeting{ID: "m-2", OwnerID: "u-host", Status: models.MeetingStatusActive}).Error)
	require.NoError(t, db.Create(&models.Meeting{ID: "m-3", OwnerID: "u-host", Status: models.MeetingStatusActive}).Error)

	ctx := context.Background()
	f := &fixture{
		repo: NewRepository(db.DB),
		recs: recordings.NewRepository(db.DB),
		llm:  &fakeLLM{answer: "Alice proposed the Q3 plan."},
	}
	f.rec = &models.Recording{MeetingID: "m-1", EgressID: "EG_room", Status: models.RecordingStatusReady}
	require.NoError(t, f.recs.CreateRecording(ctx, f.rec))
	f.track = &models.ParticipantAudioTrack{
		RecordingID:         f.rec.ID,
		ParticipantIdentity: "u-alice",
		ParticipantName:     "Alice",
		EgressID:            "EG_alice",
		Status:              models.RecordingStatusReady,
	}
	require.NoError(t, f.recs.CreateTrack(ctx, f.track))
	require.NoError(t, f.recs.SetTrackTranscription(ctx, f.track.ID, models.CompletedTranscription([]models.Segment{
		{Text: "Hello everyone.", Start: 0, End: 2},
		{Text: " ", Start: 2, End: 3},
		{Text: "Let's plan Q3.", Start: 3, End: 5},
	})))

	f.svc = NewService(f.repo, f.recs, meetings.NewRepository(db.DB), f.llm, catalog, config.LLMConfig{})
	return f
}

func (f *fixture) addTrack(t *testing.T, identity string, tr models.Transcription) *models.ParticipantAudioTrack {
	t.Helper()
	ctx := context.Background()
	track := &models.ParticipantAudioTrack{
		RecordingID:         f.rec.ID,
		ParticipantIdentity: identity,
		EgressID:            "EG_" + identity,
		Status:              models.RecordingStatusReady,
	}
	require.NoError(t, f.recs.CreateTrack(ctx, track))
	if tr.Status != models.TranscriptionStatusPending {
		require.NoError(t, f.recs.SetTrackTranscription(ctx, track.ID, tr))
	}
	return track
}

func assertCode(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, apperrors.GetCode(err), err.Error())
}

func TestListPrompts(t *testing.T) {
	f := newFixture(t)
	prompts := f.svc.ListPrompts()
	require.Len(t, prompts, 2)
	assert.Equal(t, "summary", prompts[0].ID)
	assert.Equal(t, "action-items", prompts[1].ID)

	prompts[0].ID = "changed"
	assert.Equal(t, "summary", f.svc.ListPrompts()[0].ID)
}

func TestRunPrompt_Completed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	run, err := f.svc.RunPrompt(ctx, RunPromptRequest{MeetingID: "m-1", AudioTrackID: f.track.ID, PromptID: "summary", UserID: "u-guest"})
	require.NoError(t, err)
	assert.Equal(t, models.PromptRunStatusCompleted, run.Status)
	require.NotNil(t, run.Result)
	assert.Equal(t, "Alice proposed the Q3 plan.", *run.Result)

	require.Len(t, f.llm.calls, 1)
	call := f.llm.calls[0]
	assert.Equal(t, "Summarize the speaker's points.", call.System)
	assert.Equal(t, "Here is the transcript:\n\nHello everyone. Let's plan Q3.", call.User)
	assert.Equal(t, ChatOptions{Temperature: 0.3, MaxTokens: 2000}, call.Opts)

	stored, err := f.repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PromptRunStatusCompleted, stored.Status)
	assert.Equal(t, f.rec.ID, stored.RecordingID)
	assert.Equal(t, "u-guest", stored.UserID)
	assert.Equal(t, "Summary", stored.PromptTitle)
	assert.Equal(t, "Alice", stored.ParticipantName)
	assert.Equal(t, "Hello everyone. Let's plan Q3.", stored.TranscriptText)
	assert.Nil(t, stored.Error)
}

func TestRunPrompt_LLMFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.llm.err = errors.New("upstream timeout")

	_, err := f.svc.RunPrompt(ctx, RunPromptRequest{MeetingID: "m-1", AudioTrackID: f.track.ID, PromptID: "summary", UserID: "u-host"})
	assertCode(t, err, apperrors.ErrCodeExternalService)

	runs, err := f.svc.ListRuns(ctx, "m-1", "u-host")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.PromptRunStatusFailed, runs[0].Status)
	require.NotNil(t, runs[0].Error)
	assert.Contains(t, *runs[0].Error, "upstream timeout")
	assert.Nil(t, runs[0].Result)
}

func TestRunPrompt_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending := f.addTrack(t, "u-bob", models.Transcription{})
	failed := f.addTrack(t, "u-carol", models.FailedTranscription("stt down"))
	silent := f.addTrack(t, "u-dave", models.CompletedTranscription(nil))

	require.NoError(t, f.recs.CreateRecording(ctx, &models.Recording{MeetingID: "m-2", EgressID: "EG_room2"}))

	tests := []struct {
		name string
		req  RunPromptRequest
		code apperrors.ErrorCode
	}{
		{"missing track id", RunPromptRequest{MeetingID: "m-1", PromptID: "summary", UserID: "u-host"}, apperrors.ErrCodeMissingField},
		{"missing prompt id", RunPromptRequest{MeetingID: "m-1", AudioTrackID: f.track.ID, UserID: "u-host"}, apperrors.ErrCodeMissingField},
		{"not a participant", RunPromptRequest{MeetingID: "m-1", AudioTrackID: f.track.ID, PromptID: "summary", UserID: "u-stranger"}, apperrors.ErrCodeForbidden},
		{"unknown meeting", RunPromptRequest{MeetingID: "m-404", AudioTrackID: f.track.ID, PromptID: "summary", UserID: "u-host"}, apperrors.ErrCodeNotFound},
		{"meeting without recording", RunPromptRequest{MeetingID: "m-3", AudioTrackID: f.track.ID, PromptID: "summary", UserID: "u-host"}, apperrors.ErrCodeNotFound},
		{"track of another recording", RunPromptRequest{MeetingID: "m-2", AudioTrackID: f.track.ID, PromptID: "summary", UserID: "u-host"}, apperrors.ErrCodeNotFound},
		{"unknown track", RunPromptRequest{MeetingID: "m-1", AudioTrackID: "nope", PromptID: "summary", UserID: "u-host"}, apperrors.ErrCodeNotFound},
		{"transcription pending", RunPromptRequest{MeetingID: "m-1", AudioTrackID: pending.ID, PromptID: "summary", UserID: "u-host"}, apperrors.ErrCodeValidation},
		{"transcription failed", RunPromptRequest{MeetingID: "m-1", AudioTrackID: failed.ID, PromptID: "summary", UserID: "u-host"}, apperrors.ErrCodeValidation},
		{"empty transcript", RunPromptRequest{MeetingID: "m-1", AudioTrackID: silent.ID, PromptID: "summary", UserID: "u-host"}, apperrors.ErrCodeValidation},
		{"unknown prompt", RunPromptRequest{MeetingID: "m-1", AudioTrackID: f.track.ID, PromptID: "haiku", UserID: "u-host"}, apperrors.ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RunPrompt(ctx, tt.req)
			assertCode(t, err, tt.code)
		})
	}

	assert.Empty(t, f.llm.calls)
	runs, err := f.repo.ListRunsByRecording(ctx, f.rec.ID)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestListRuns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"summary", "action-items", "summary"} {
		require.NoError(t, f.repo.CreateRun(ctx, &models.PromptRun{
			RecordingID:  f.rec.ID,
			AudioTrackID: f.track.ID,
			UserID:       "u-host",
			PromptID:     id,
			Status:       models.PromptRunStatusProcessing,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}))
	}

	runs, err := f.svc.ListRuns(ctx, "m-1", "u-guest")
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.True(t, runs[0].CreatedAt.After(runs[1].CreatedAt))
	assert.True(t, runs[1].CreatedAt.After(runs[2].CreatedAt))
	assert.Equal(t, "action-items", runs[1].PromptID)

	t.Run("no recording yields empty list", func(t *testing.T) {
		runs, err := f.svc.ListRuns(ctx, "m-2", "u-host")
		require.NoError(t, err)
		assert.NotNil(t, runs)
		assert.Empty(t, runs)
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		_, err := f.svc.ListRuns(ctx, "m-1", "u-stranger")
		assertCode(t, err, apperrors.ErrCodeForbidden)
	})
}

func TestRepository_FinishRunOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	run := &models.PromptRun{RecordingID: f.rec.ID, AudioTrackID: f.track.ID, UserID: "u-host", PromptID: "summary", Status: models.PromptRunStatusProcessing}
	require.NoError(t, f.repo.CreateRun(ctx, run))

	result := "done"
	ok, err := f.repo.FinishRun(ctx, run.ID, models.PromptRunStatusCompleted, &result, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	msg := "late failure"
	ok, err = f.repo.FinishRun(ctx, run.ID, models.PromptRunStatusFailed, nil, &msg)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := f.repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PromptRunStatusCompleted, stored.Status)
	assert.Equal(t, "done", *stored.Result)

	_, err = f.repo.FinishRun(ctx, run.ID, models.PromptRunStatusProcessing, nil, nil)
	assert.Error(t, err)

	_, err = f.repo.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRunPrompt_ConfiguredTemperature(t *testing.T) {
	for _, temp := range []float64{0, 0.7} {
		f := newFixture(t)
		svc := NewService(f.repo, f.recs, f.svc.meetings, f.llm, catalog, config.LLMConfig{Temperature: &temp, MaxTokens: 500})

		_, err := svc.RunPrompt(context.Background(), RunPromptRequest{MeetingID: "m-1", AudioTrackID: f.track.ID, PromptID: "summary", UserID: "u-guest"})
		require.NoError(t, err)
		require.Len(t, f.llm.calls, 1)
		assert.Equal(t, ChatOptions{Temperature: temp, MaxTokens: 500}, f.llm.calls[0].Opts)
	}
}
