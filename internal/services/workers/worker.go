package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/killallgit/route-planner-api/internal/models"
	"github.com/killallgit/route-planner-api/internal/services/jobs"
)

// JobProcessor defines the interface for processing different job types
type JobProcessor interface {
	ProcessJob(ctx context.Context, job *models.Job) error
	JobTypes() []models.JobType
}

// Worker represents a background worker that processes jobs
type Worker struct {
	id           string
	jobService   jobs.Service
	processors   map[models.JobType]JobProcessor
	jobTypes     []models.JobType
	stopChan     chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
	pollInterval time.Duration
	log          *slog.Logger
}

// NewWorker creates a new worker instance
func NewWorker(id string, jobService jobs.Service, pollInterval time.Duration, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Worker{
		id:           id,
		jobService:   jobService,
		processors:   make(map[models.JobType]JobProcessor),
		stopChan:     make(chan struct{}),
		pollInterval: pollInterval,
		log:          log.With("worker", id),
	}
}

// RegisterProcessor registers a job processor for the types it reports.
// A later registration for the same type replaces the earlier one.
func (w *Worker) RegisterProcessor(processor JobProcessor) {
	for _, jobType := range processor.JobTypes() {
		if _, ok := w.processors[jobType]; !ok {
			w.jobTypes = append(w.jobTypes, jobType)
		}
		w.processors[jobType] = processor
	}
}

// Start starts the worker in a goroutine
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop stops the worker and waits for the current job to finish
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
}

// run is the main worker loop
func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	w.log.Debug("worker starting")
	defer w.log.Debug("worker stopped")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			// drain the queue before waiting for the next tick
			for {
				processed, err := w.processNextJob(ctx)
				if err != nil {
					w.log.Error("error processing job", "error", err)
				}
				if !processed || ctx.Err() != nil || w.stopping() {
					break
				}
			}
		}
	}
}

func (w *Worker) stopping() bool {
	select {
	case <-w.stopChan:
		return true
	default:
		return false
	}
}

// processNextJob claims and processes the next available job. It reports
// whether a job was claimed.
func (w *Worker) processNextJob(ctx context.Context) (bool, error) {
	if len(w.jobTypes) == 0 {
		return false, fmt.Errorf("no job processors registered")
	}

	job, err := w.jobService.ClaimNextJob(ctx, w.id, w.jobTypes)
	if err != nil {
		if errors.Is(err, jobs.ErrNoJobsAvailable) {
			return false, nil
		}
		return false, err
	}

	w.log.Debug("claimed job", "job_id", job.ID, "type", job.Type)

	processor, ok := w.processors[job.Type]
	if !ok {
		// unreachable while claims are filtered by w.jobTypes
		return true, fmt.Errorf("no processor found for job type %s", job.Type)
	}

	err = processor.ProcessJob(ctx, job)
	if err == nil {
		w.log.Debug("completed job", "job_id", job.ID)
		return true, nil
	}

	// interrupted by shutdown: hand the job back instead of burning a retry
	if ctx.Err() != nil {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if relErr := w.jobService.ReleaseJob(releaseCtx, job.ID); relErr != nil {
			w.log.Error("failed to release job", "job_id", job.ID, "error", relErr)
		}
		return true, nil
	}

	var structuredErr *models.StructuredJobError
	if errors.As(err, &structuredErr) {
		err = w.jobService.FailJobWithDetails(ctx, job.ID, structuredErr.Type, structuredErr.Code, structuredErr.Message, structuredErr.Details)
	} else {
		err = w.jobService.FailJob(ctx, job.ID, err)
	}
	if err != nil {
		return true, fmt.Errorf("marking job %d as failed: %w", job.ID, err)
	}
	return true, nil
}

// WorkerPool manages multiple workers
type WorkerPool struct {
	workers    []*Worker
	jobService jobs.Service
	log        *slog.Logger
	mu         sync.RWMutex
	started    bool
	stopped    bool
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(jobService jobs.Service, workerCount int, pollInterval time.Duration, log *slog.Logger) *WorkerPool {
	if log == nil {
		log = slog.Default()
	}
	if workerCount < 1 {
		workerCount = 1
	}

	pool := &WorkerPool{
		jobService: jobService,
		workers:    make([]*Worker, workerCount),
		log:        log.With("component", "workers"),
	}

	for i := 0; i < workerCount; i++ {
		workerID := fmt.Sprintf("worker-%d", i+1)
		pool.workers[i] = NewWorker(workerID, jobService, pollInterval, pool.log)
	}

	return pool
}

// RegisterProcessor registers a processor with all workers
func (p *WorkerPool) RegisterProcessor(processor JobProcessor) {
	p.mu.Lock()
	defer p.mu.Unlock()

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
	if p.stopped {
		return fmt.Errorf("worker pool has been stopped")
	}

	p.log.Info("starting worker pool", "workers", len(p.workers))

	for _, worker := range p.workers {
		worker.Start(ctx)
	}

	p.started = true
	return nil
}

// Stop stops all workers gracefully. A stopped pool cannot be restarted.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.log.Info("stopping worker pool")

	var wg sync.WaitGroup
	for _, worker := range p.workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			w.Stop()
		}(worker)
	}
	wg.Wait()

	p.started = false
	p.stopped = true
}
