package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/killallgit/meeting-recorder/api/types"
	"github.com/killallgit/meeting-recorder/internal/database"
	"github.com/killallgit/meeting-recorder/internal/logging"
	"github.com/killallgit/meeting-recorder/internal/services/analysis"
	"github.com/killallgit/meeting-recorder/internal/services/auth"
	"github.com/killallgit/meeting-recorder/internal/services/cache"
	"github.com/killallgit/meeting-recorder/internal/services/cleanup"
	"github.com/killallgit/meeting-recorder/internal/services/egress"
	"github.com/killallgit/meeting-recorder/internal/services/events"
	"github.com/killallgit/meeting-recorder/internal/services/idempotency"
	"github.com/killallgit/meeting-recorder/internal/services/jobs"
	"github.com/killallgit/meeting-recorder/internal/services/meetings"
	"github.com/killallgit/meeting-recorder/internal/services/pipeline"
	"github.com/killallgit/meeting-recorder/internal/services/recordings"
	"github.com/killallgit/meeting-recorder/internal/services/storage"
	"github.com/killallgit/meeting-recorder/internal/services/transcription"
	"github.com/killallgit/meeting-recorder/internal/services/webhook"
	"github.com/killallgit/meeting-recorder/internal/services/workers"
	"github.com/killallgit/meeting-recorder/pkg/config"
	"github.com/killallgit/meeting-recorder/pkg/ffmpeg"
	"github.com/redis/go-redis/v9"
)

const maintenanceInterval = time.Minute

// components is the wired object graph shared by serve and worker
type components struct {
	cfg        *config.Config
	db         *database.DB
	publisher  events.Publisher
	store      storage.ObjectStore
	jobs       jobs.Service
	meetings   meetings.Directory
	recordings recordings.Repository
	guard      idempotency.Guard
	leases     workers.LeasePurger
	closers    []func() error
}

// newComponents opens the database, the object store and the event backend
func newComponents(ctx context.Context, cfg *config.Config) (*components, error) {
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}
	c := &components{cfg: cfg, db: db}
	c.closers = append(c.closers, db.Close)

	if err := db.Migrate(); err != nil {
		c.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	publisher, err := events.New(cfg.Events)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("initializing events: %w", err)
	}
	c.publisher = publisher
	c.closers = append(c.closers, publisher.Close)

	minioStore, err := storage.NewMinioStore(cfg.Storage)
	if err != nil {
		c.Close()
		return nil, err
	}
	if err := minioStore.EnsureBucket(ctx); err != nil {
		slog.WarnContext(ctx, "object store not ready", "bucket", cfg.Storage.Bucket, logging.ErrKey, err)
	}
	c.store = storage.NewCachedStore(minioStore, c.newURLCache())

	c.guard, c.leases = c.newGuard()
	c.jobs = jobs.NewService(jobs.NewRepository(db.DB), jobs.Defaults{
		MaxAttempts: cfg.Processing.RetryAttempts,
		Backoff:     cfg.Processing.RetryDelay,
	})
	c.meetings = meetings.NewRepository(db.DB)
	c.recordings = recordings.NewRepository(db.DB)

	return c, nil
}

func (c *components) newURLCache() cache.Cache {
	switch c.cfg.URLCache.Backend {
	case "memory":
		mc := cache.NewMemoryCache(c.cfg.URLCache.MaxEntries)
		c.closers = append(c.closers, func() error { mc.Stop(); return nil })
		return mc
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     c.cfg.URLCache.RedisAddr,
			Password: c.cfg.URLCache.RedisPassword,
			DB:       c.cfg.URLCache.RedisDB,
		})
		c.closers = append(c.closers, client.Close)
		return cache.NewRedisCache(client)
	default:
		return cache.Noop{}
	}
}

// newGuard returns the lease guard and, for the database backend, its purger
func (c *components) newGuard() (idempotency.Guard, workers.LeasePurger) {
	if c.cfg.Idempotency.Backend == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     c.cfg.Idempotency.RedisAddr,
			Password: c.cfg.Idempotency.RedisPassword,
			DB:       c.cfg.Idempotency.RedisDB,
		})
		c.closers = append(c.closers, client.Close)
		return idempotency.NewRedisGuard(client), nil
	}
	g := idempotency.NewDBGuard(c.db.DB)
	return g, g
}

func (c *components) egress() (egress.Client, *egress.OutputBuilder) {
	client := egress.NewClient(egress.Config{
		URL:       c.cfg.LiveKit.URL,
		APIKey:    c.cfg.LiveKit.APIKey,
		APISecret: c.cfg.LiveKit.APISecret,
		Timeout:   c.cfg.LiveKit.RequestTimeout,
	})
	return client, egress.NewOutputBuilder(egress.UploadFromStorage(c.cfg.Storage))
}

// dependencies builds everything the HTTP handlers need
func (c *components) dependencies(ctx context.Context) (*types.Dependencies, error) {
	cfg := c.cfg

	authService, err := auth.NewService(cfg.Auth.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("initializing auth: %w", err)
	}
	authService.SetDevAuth(cfg.Auth.DevAuthToken)
	if cfg.Auth.DevAuthToken != "" {
		slog.WarnContext(ctx, "development auth token enabled", "user_id", auth.DevUserID)
	}

	egressClient, outputs := c.egress()

	router := webhook.NewRouter()
	pipeline.New(c.db.DB, c.recordings, c.meetings, c.jobs, egressClient, outputs, c.guard, c.publisher, pipeline.Config{
		EgressIdentityPrefix:  cfg.LiveKit.EgressIdentityPrefix,
		ParticipantEgress:     cfg.LiveKit.ParticipantEgress,
		LeaseTTL:              cfg.Idempotency.LeaseTTL,
		TranscriptionAttempts: cfg.Processing.RetryAttempts,
		TranscriptionBackoff:  cfg.Processing.RetryDelay,
	}).Register(router)

	deps := &types.Dependencies{
		DB:              c.db,
		WebhookVerifier: webhook.NewVerifier(cfg.LiveKit.APIKey, cfg.LiveKit.APISecret, cfg.LiveKit.WebhookLeeway),
		WebhookRouter:   router,
		AuthService:     authService,
		RecordingService: recordings.NewService(c.recordings, c.meetings, egressClient, outputs, c.store, c.guard, c.publisher, recordings.ServiceConfig{
			URLTTL:   cfg.Storage.PresignTTL,
			LeaseTTL: cfg.Idempotency.LeaseTTL,
		}),
		JobService: c.jobs,
		Version:    types.VersionInfo{Version: Version, Commit: GitCommit, BuildDate: BuildTime},
	}

	llm, err := analysis.NewLLMClient(cfg.LLM)
	if err != nil {
		slog.WarnContext(ctx, "analysis disabled", "provider", cfg.LLM.Provider, logging.ErrKey, err)
	} else {
		deps.AnalysisService = analysis.NewService(analysis.NewRepository(c.db.DB), c.recordings, c.meetings, llm, cfg.Prompts, cfg.LLM)
	}

	return deps, nil
}

// workerPool builds the transcription workers
func (c *components) workerPool() (*workers.WorkerPool, error) {
	cfg := c.cfg

	stt, err := transcription.NewSTTClient(cfg.STT)
	if err != nil {
		return nil, fmt.Errorf("initializing speech-to-text: %w", err)
	}

	ff := ffmpeg.New(cfg.Processing.FFmpegPath, cfg.Processing.FFprobePath, cfg.Processing.FFmpegTimeout)
	if err := ff.ValidateBinaries(); err != nil {
		return nil, err
	}

	transcriber := transcription.NewService(ff, stt, transcription.Options{
		ChunkSeconds:  cfg.Processing.ChunkSeconds,
		MaxChunkBytes: cfg.Processing.MaxChunkBytes,
		Concurrency:   cfg.Processing.ChunkConcurrency,
		TempDir:       cfg.Processing.TempDir,
	})

	pool := workers.NewWorkerPool(c.jobs, cfg.Processing.Workers, cfg.Processing.PollInterval, cfg.Processing.JobTimeout)
	pool.RegisterProcessor(workers.NewTranscriptionProcessor(c.jobs, c.recordings, c.store, transcriber, c.publisher, cfg.Processing.TempDir))
	staleAfter := cfg.Processing.JobTimeout + maintenanceInterval
	pool.SetMaintenance(workers.Maintenance{
		Interval:        maintenanceInterval,
		StaleAfter:      staleAfter,
		FailedRetention: cfg.Processing.FailedRetention,
		Leases:          c.leases,
		TempFiles:       cleanup.NewService(cfg.Processing.TempDir, staleAfter),
	})
	return pool, nil
}

// Close releases everything in reverse order of creation
func (c *components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
