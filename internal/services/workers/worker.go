package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/killallgit/meeting-recorder/internal/logging"
	"github.com/killallgit/meeting-recorder/internal/models"
	"github.com/killallgit/meeting-recorder/internal/services/jobs"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/killallgit/meeting-recorder/internal/services/workers"

// JobProcessor defines the interface for processing different job types.
// ProcessJob completes the job itself; a returned error is recorded as a failed attempt.
type JobProcessor interface {
	ProcessJob(ctx context.Context, job *models.Job) error
	CanProcess(jobType models.JobType) bool
}

// AbandonHandler is implemented by processors that must settle their own
// state when a job runs out of attempts without its worker reporting back
type AbandonHandler interface {
	HandleAbandoned(ctx context.Context, job *models.Job)
}

// knownJobTypes lists every type a processor may claim
var knownJobTypes = []models.JobType{
	models.JobTypeTranscription,
}

// Worker represents a background worker that processes jobs
type Worker struct {
	id           string
	jobService   jobs.Service
	processors   []JobProcessor
	stopChan     chan struct{}
	wg           sync.WaitGroup
	pollInterval time.Duration
	jobTimeout   time.Duration
}

// NewWorker creates a new worker instance
func NewWorker(id string, jobService jobs.Service, pollInterval, jobTimeout time.Duration) *Worker {
	return &Worker{
		id:           id,
		jobService:   jobService,
		processors:   make([]JobProcessor, 0),
		stopChan:     make(chan struct{}),
		pollInterval: pollInterval,
		jobTimeout:   jobTimeout,
	}
}

// RegisterProcessor registers a job processor
func (w *Worker) RegisterProcessor(processor JobProcessor) {
	w.processors = append(w.processors, processor)
}

// Start starts the worker in a goroutine
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop stops the worker gracefully, letting the current job finish
func (w *Worker) Stop() {
	close(w.stopChan)
	w.wg.Wait()
}

func (w *Worker) stopped(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-w.stopChan:
		return true
	default:
		return false
	}
}

// run is the main worker loop
func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ctx = logging.AppendCtx(ctx, slog.String("worker_id", w.id))
	slog.InfoContext(ctx, "Worker starting")
	defer slog.InfoContext(ctx, "Worker stopped")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			// Drain the queue before waiting for the next tick.
			for !w.stopped(ctx) {
				processed, err := w.processNextJob(ctx)
				if err != nil {
					slog.ErrorContext(ctx, "error processing job", logging.ErrKey, err)
				}
				if !processed {
					break
				}
			}
		}
	}
}

func (w *Worker) supportedTypes() []models.JobType {
	var types []models.JobType
	for _, jobType := range knownJobTypes {
		if w.processorFor(jobType) != nil {
			types = append(types, jobType)
		}
	}
	return types
}

func (w *Worker) processorFor(jobType models.JobType) JobProcessor {
	for _, p := range w.processors {
		if p.CanProcess(jobType) {
			return p
		}
	}
	return nil
}

// processNextJob claims and processes the next available job. processed is
// false when the queue had nothing for this worker.
func (w *Worker) processNextJob(ctx context.Context) (processed bool, err error) {
	supportedTypes := w.supportedTypes()
	if len(supportedTypes) == 0 {
		return false, fmt.Errorf("no job processors registered")
	}

	job, err := w.jobService.ClaimNextJob(ctx, w.id, supportedTypes)
	if err != nil {
		if errors.Is(err, jobs.ErrNoJobsAvailable) {
			return false, nil
		}
		return false, err
	}

	processor := w.processorFor(job.Type)
	if processor == nil {
		return true, fmt.Errorf("no processor found for job type %s", job.Type)
	}

	jobCtx := logging.AppendCtx(ctx,
		slog.Uint64("job_id", uint64(job.ID)),
		slog.String("job_type", string(job.Type)),
		slog.Int("attempt", job.Attempts),
	)
	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(jobCtx, w.jobTimeout)
		defer cancel()
	}

	jobCtx, span := otel.Tracer(tracerName).Start(jobCtx, "job."+string(job.Type))
	span.SetAttributes(
		attribute.Int64("job.id", int64(job.ID)),
		attribute.Int("job.attempt", job.Attempts),
	)
	defer span.End()

	slog.InfoContext(jobCtx, "Claimed job")

	if err := processor.ProcessJob(jobCtx, job); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		// Record the attempt even when the job context expired.
		failCtx := context.WithoutCancel(jobCtx)
		if _, failErr := w.jobService.FailJob(failCtx, job.ID, err); failErr != nil {
			slog.ErrorContext(failCtx, "failed to mark job as failed", logging.ErrKey, failErr)
		}
		return true, fmt.Errorf("job processing failed: %w", err)
	}

	slog.InfoContext(jobCtx, "Completed job")
	return true, nil
}

// LeasePurger drops idempotency leases that were never released
type LeasePurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// TempSweeper removes scratch files abandoned by interrupted jobs
type TempSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Maintenance configures the pool's housekeeping loop
type Maintenance struct {
	Interval        time.Duration
	StaleAfter      time.Duration // processing jobs older than this are released
	FailedRetention time.Duration // failed jobs older than this are deleted
	Leases          LeasePurger
	TempFiles       TempSweeper
}

// WorkerPool manages multiple workers
type WorkerPool struct {
	workers     []*Worker
	processors  []JobProcessor
	jobService  jobs.Service
	maintenance Maintenance
	stopChan    chan struct{}
	wg          sync.WaitGroup
	mu          sync.RWMutex
	started     bool
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(jobService jobs.Service, workerCount int, pollInterval, jobTimeout time.Duration) *WorkerPool {
	pool := &WorkerPool{
		jobService: jobService,
		workers:    make([]*Worker, workerCount),
	}

	for i := 0; i < workerCount; i++ {
		workerID := fmt.Sprintf("worker-%d", i+1)
		pool.workers[i] = NewWorker(workerID, jobService, pollInterval, jobTimeout)
	}

	return pool
}

// SetMaintenance enables the housekeeping loop; call before Start
func (p *WorkerPool) SetMaintenance(m Maintenance) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.maintenance = m
}

// RegisterProcessor registers a processor with all workers
func (p *WorkerPool) RegisterProcessor(processor JobProcessor) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processors = append(p.processors, processor)
	for _, worker := range p.workers {
		worker.RegisterProcessor(processor)
	}
}

// Size returns the number of workers
func (p *WorkerPool) Size() int {
	return len(p.workers)
}

// Start starts all workers
func (p *WorkerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("worker pool already started")
	}

	slog.InfoContext(ctx, "Starting worker pool", "workers", len(p.workers))

	// Jobs left in processing by a crashed process become claimable again.
	if p.maintenance.StaleAfter > 0 {
		p.recoverStale(ctx, p.maintenance.StaleAfter)
	}

	for _, worker := range p.workers {
		worker.Start(ctx)
	}

	p.stopChan = make(chan struct{})
	if p.maintenance.Interval > 0 {
		p.wg.Add(1)
		go p.runMaintenance(ctx)
	}

	p.started = true
	return nil
}

// Stop stops all workers gracefully
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	slog.Info("Stopping worker pool")

	close(p.stopChan)
	for _, worker := range p.workers {
		worker.Stop()
	}
	p.wg.Wait()

	p.started = false
}

func (p *WorkerPool) runMaintenance(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.maintenance.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.maintain(ctx)
		}
	}
}

// maintain runs one housekeeping pass
func (p *WorkerPool) maintain(ctx context.Context) {
	m := p.maintenance
	if m.StaleAfter > 0 {
		p.recoverStale(ctx, m.StaleAfter)
	}
	if m.FailedRetention > 0 {
		if _, err := p.jobService.CleanupOldJobs(ctx, m.FailedRetention); err != nil {
			slog.WarnContext(ctx, "failed to clean up old jobs", logging.ErrKey, err)
		}
	}
	if m.Leases != nil {
		if n, err := m.Leases.PurgeExpired(ctx); err != nil {
			slog.WarnContext(ctx, "failed to purge expired leases", logging.ErrKey, err)
		} else if n > 0 {
			slog.DebugContext(ctx, "Purged expired leases", "count", n)
		}
	}
	if m.TempFiles != nil {
		if n, err := m.TempFiles.Sweep(ctx); err != nil {
			slog.WarnContext(ctx, "failed to sweep temp files", logging.ErrKey, err)
		} else if n > 0 {
			slog.InfoContext(ctx, "Removed stale temp files", "count", n)
		}
	}
}

// recoverStale releases jobs left behind by dead workers and lets the owning
// processor settle the ones that will never run again
func (p *WorkerPool) recoverStale(ctx context.Context, olderThan time.Duration) {
	_, exhausted, err := p.jobService.RecoverStaleJobs(ctx, olderThan)
	if err != nil {
		slog.WarnContext(ctx, "failed to recover stale jobs", logging.ErrKey, err)
		return
	}
	for _, job := range exhausted {
		for _, processor := range p.processors {
			handler, ok := processor.(AbandonHandler)
			if ok && processor.CanProcess(job.Type) {
				handler.HandleAbandoned(ctx, job)
				break
			}
		}
	}
}
