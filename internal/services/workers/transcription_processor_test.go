package workers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/killallgit/meeting-recorder/internal/database"
	"github.com/killallgit/meeting-recorder/internal/models"
	"github.com/killallgit/meeting-recorder/internal/services/events"
	"github.com/killallgit/meeting-recorder/internal/services/jobs"
	"github.com/killallgit/meeting-recorder/internal/services/recordings"
	"github.com/killallgit/meeting-recorder/internal/services/storage"
	"github.com/killallgit/meeting-recorder/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu        sync.Mutex
	err       error
	downloads []string
}

func (f *fakeStore) Download(_ context.Context, key, dst string) error {
	f.mu.Lock()
	f.downloads = append(f.downloads, key)
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(dst, []byte("OggS"), 0644)
}

func (f *fakeStore) Delete(context.Context, ...string) error { return nil }

func (f *fakeStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://storage.local/" + key, nil
}

func (f *fakeStore) EnsureBucket(context.Context) error { return nil }

type fakeTranscriber struct {
	segments []models.Segment
	err      error
}

func (f *fakeTranscriber) Transcribe(context.Context, string) ([]models.Segment, error) {
	return f.segments, f.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	db        *database.DB
	jobs      jobs.Service
	repo      recordings.Repository
	store     *fakeStore
	stt       *fakeTranscriber
	publisher *recordingPublisher
	processor *TranscriptionProcessor
	worker    *Worker
	track     *models.ParticipantAudioTrack
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Initialize(config.DatabaseConfig{Driver: database.DriverSQLite, Path: ":memory:", EnableForeignKeys: true})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		db:        db,
		jobs:      jobs.NewService(jobs.NewRepository(db.DB), jobs.Defaults{MaxAttempts: 3, Backoff: 5 * time.Second}),
		repo:      recordings.NewRepository(db.DB),
		store:     &fakeStore{},
		stt:       &fakeTranscriber{segments: []models.Segment{{Text: "добрый день", Start: 0, End: 25}}},
		publisher: &recordingPublisher{},
	}

	ctx := context.Background()
	rec := &models.Recording{MeetingID: "m-1", EgressID: "EG_room"}
	require.NoError(t, f.repo.CreateRecording(ctx, rec))

	path := "recordings/m-1/audio/alice.ogg"
	f.track = &models.ParticipantAudioTrack{
		RecordingID:         rec.ID,
		ParticipantIdentity: "alice",
		ParticipantName:     "Alice",
		EgressID:            "EG_alice",
		FilePath:            &path,
		Status:              models.RecordingStatusReady,
	}
	require.NoError(t, f.repo.CreateTrack(ctx, f.track))

	f.processor = NewTranscriptionProcessor(f.jobs, f.repo, f.store, f.stt, f.publisher, t.TempDir())
	f.worker = NewWorker("worker-test", f.jobs, time.Hour, time.Minute)
	f.worker.RegisterProcessor(f.processor)
	return f
}

func (f *fixture) enqueue(t *testing.T, opts ...jobs.JobOption) *models.Job {
	t.Helper()
	desc := models.TranscriptionJob{
		AudioTrackID:        f.track.ID,
		MeetingID:           "m-1",
		RecordingID:         f.track.RecordingID,
		ParticipantIdentity: "alice",
		ParticipantName:     "Alice",
		FilePath:            *f.track.FilePath,
	}
	opts = append([]jobs.JobOption{jobs.WithRemoveOnComplete()}, opts...)
	job, created, err := f.jobs.EnqueueUniqueJob(context.Background(), models.JobTypeTranscription, desc.Payload(), desc.UniqueKey(), opts...)
	require.NoError(t, err)
	require.True(t, created)
	return job
}

func (f *fixture) transcription(t *testing.T) models.Transcription {
	t.Helper()
	track, err := f.repo.GetTrackByID(context.Background(), f.track.ID)
	require.NoError(t, err)
	return track.Transcription
}

func TestTranscriptionProcessor_Success(t *testing.T) {
	f := newFixture(t)
	job := f.enqueue(t)

	processed, err := f.worker.processNextJob(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)

	tr := f.transcription(t)
	assert.Equal(t, models.TranscriptionStatusCompleted, tr.Status)
	require.Len(t, tr.Segments, 1)
	assert.Equal(t, "добрый день", tr.Segments[0].Text)
	assert.Equal(t, []string{"recordings/m-1/audio/alice.ogg"}, f.store.downloads)

	_, err = f.jobs.GetJob(context.Background(), job.ID)
	assert.ErrorIs(t, err, jobs.ErrJobNotFound, "completed job is removed")
	assert.Equal(t, []events.Type{events.TypeTranscriptionCompleted}, f.publisher.types())

	processed, err = f.worker.processNextJob(context.Background())
	require.NoError(t, err)
	assert.False(t, processed, "queue is empty")
}

func TestTranscriptionProcessor_EmptySpeech(t *testing.T) {
	f := newFixture(t)
	f.stt.segments = []models.Segment{}
	f.enqueue(t)

	_, err := f.worker.processNextJob(context.Background())
	require.NoError(t, err)

	tr := f.transcription(t)
	assert.Equal(t, models.TranscriptionStatusCompleted, tr.Status)
	assert.Empty(t, tr.Segments)
}

func TestTranscriptionProcessor_RetryKeepsProcessing(t *testing.T) {
	f := newFixture(t)
	f.stt.err = errors.New("stt api returned 503")
	job := f.enqueue(t)

	_, err := f.worker.processNextJob(context.Background())
	require.Error(t, err)

	tr := f.transcription(t)
	assert.Equal(t, models.TranscriptionStatusProcessing, tr.Status, "no failed status before the final attempt")

	stored, err := f.jobs.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	assert.Equal(t, string(models.ErrorTypeProcessing), stored.ErrorType)
	assert.Empty(t, f.publisher.types())
}

func TestTranscriptionProcessor_FinalAttemptFails(t *testing.T) {
	f := newFixture(t)
	f.stt.err = errors.New("stt api returned 503")
	job := f.enqueue(t, jobs.WithMaxAttempts(1))

	_, err := f.worker.processNextJob(context.Background())
	require.Error(t, err)

	tr := f.transcription(t)
	assert.Equal(t, models.TranscriptionStatusFailed, tr.Status)
	assert.Contains(t, tr.Error, "503")

	stored, err := f.jobs.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPermanentlyFailed, stored.Status, "failed jobs are kept")
	assert.Equal(t, []events.Type{events.TypeTranscriptionFailed}, f.publisher.types())
}

func TestTranscriptionProcessor_MissingObjectIsPermanent(t *testing.T) {
	f := newFixture(t)
	f.store.err = fmt.Errorf("%w: recordings/m-1/audio/alice.ogg", storage.ErrObjectNotFound)
	job := f.enqueue(t)

	_, err := f.worker.processNextJob(context.Background())
	require.Error(t, err)

	assert.Equal(t, models.TranscriptionStatusFailed, f.transcription(t).Status)
	stored, err := f.jobs.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPermanentlyFailed, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
}

func TestTranscriptionProcessor_DownloadErrorRetries(t *testing.T) {
	f := newFixture(t)
	f.store.err = errors.New("connection reset by peer")
	job := f.enqueue(t)

	_, err := f.worker.processNextJob(context.Background())
	require.Error(t, err)

	stored, err := f.jobs.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, stored.Status)
	assert.Equal(t, string(models.ErrorTypeDownload), stored.ErrorType)
	assert.True(t, stored.AvailableAt.After(time.Now()), "retry is delayed by backoff")
}

func TestTranscriptionProcessor_TrackDeleted(t *testing.T) {
	f := newFixture(t)
	job := f.enqueue(t)
	require.NoError(t, f.repo.DeleteRecording(context.Background(), f.track.RecordingID))

	_, err := f.worker.processNextJob(context.Background())
	require.Error(t, err)

	stored, err := f.jobs.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPermanentlyFailed, stored.Status)
	assert.Equal(t, string(models.ErrorTypeNotFound), stored.ErrorType)
	assert.Empty(t, f.store.downloads)
}

func TestTranscriptionProcessor_RetryThenSucceed(t *testing.T) {
	f := newFixture(t)
	f.stt.err = errors.New("timeout")
	job := f.enqueue(t, jobs.WithBackoff(time.Millisecond))

	_, err := f.worker.processNextJob(context.Background())
	require.Error(t, err)
	assert.Equal(t, models.TranscriptionStatusProcessing, f.transcription(t).Status)

	f.stt.err = nil
	time.Sleep(5 * time.Millisecond)

	processed, err := f.worker.processNextJob(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, models.TranscriptionStatusCompleted, f.transcription(t).Status)

	_, err = f.jobs.GetJob(context.Background(), job.ID)
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
}

func TestTranscriptionProcessor_WorkerDiedOnLastAttempt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.enqueue(t, jobs.WithMaxAttempts(1))

	claimed, err := f.jobs.ClaimNextJob(ctx, "worker-gone", nil)
	require.NoError(t, err)
	require.Equal(t, job.ID, claimed.ID)
	require.NoError(t, f.repo.SetTrackTranscription(ctx, f.track.ID, models.ProcessingTranscription()))
	require.NoError(t, f.db.DB.Model(&models.Job{}).Where("id = ?", job.ID).
		Update("started_at", time.Now().UTC().Add(-time.Hour)).Error)

	pool := NewWorkerPool(f.jobs, 1, time.Hour, time.Minute)
	pool.RegisterProcessor(f.processor)
	pool.SetMaintenance(Maintenance{StaleAfter: time.Minute})
	require.NoError(t, pool.Start(ctx))
	pool.Stop()

	tr := f.transcription(t)
	assert.Equal(t, models.TranscriptionStatusFailed, tr.Status)
	assert.Equal(t, "worker timed out", tr.Error)
	assert.Equal(t, []events.Type{events.TypeTranscriptionFailed}, f.publisher.types())

	stored, err := f.jobs.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPermanentlyFailed, stored.Status)
}

func TestTranscriptionProcessor_WorkerDiedWithAttemptsLeft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.enqueue(t)

	_, err := f.jobs.ClaimNextJob(ctx, "worker-gone", nil)
	require.NoError(t, err)
	require.NoError(t, f.repo.SetTrackTranscription(ctx, f.track.ID, models.ProcessingTranscription()))
	require.NoError(t, f.db.DB.Model(&models.Job{}).Where("id = ?", job.ID).
		Update("started_at", time.Now().UTC().Add(-time.Hour)).Error)

	pool := NewWorkerPool(f.jobs, 1, time.Hour, time.Minute)
	pool.RegisterProcessor(f.processor)
	pool.recoverStale(ctx, time.Minute)

	assert.Equal(t, models.TranscriptionStatusProcessing, f.transcription(t).Status, "retry pending")
	assert.Empty(t, f.publisher.types())
}
