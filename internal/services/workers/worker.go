package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/killallgit/speech-coach/internal/models"
	"github.com/killallgit/speech-coach/internal/services/jobs"
	"github.com/killallgit/speech-coach/pkg/logger"
	"github.com/sirupsen/logrus"
)

// JobProcessor defines the interface for processing different job types
type JobProcessor interface {
	ProcessJob(ctx context.Context, job *models.Job) error
	CanProcess(jobType models.JobType) bool
}

// AbandonHandler is implemented by processors that must settle their target
// when the queue gives up on a job.
type AbandonHandler interface {
	JobAbandoned(ctx context.Context, job *models.Job) error
}

// Worker represents a background worker that processes jobs
type Worker struct {
	id           string
	jobService   jobs.Service
	processors   []JobProcessor
	stopChan     chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
	pollInterval time.Duration
	jobTimeout   time.Duration
	log          *logrus.Entry
}

// NewWorker creates a new worker instance. A non-positive jobTimeout leaves
// jobs bounded only by the parent context.
func NewWorker(id string, jobService jobs.Service, pollInterval, jobTimeout time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Worker{
		id:           id,
		jobService:   jobService,
		processors:   make([]JobProcessor, 0),
		stopChan:     make(chan struct{}),
		pollInterval: pollInterval,
		jobTimeout:   jobTimeout,
		log:          logger.WithComponent("worker").WithField("worker_id", id),
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

// Stop stops the worker gracefully
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
}

// run is the main worker loop
func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	w.log.Debug("Worker starting")
	defer w.log.Debug("Worker stopped")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			if err := w.processNextJob(ctx); err != nil {
				w.log.WithError(err).Warn("Error processing job")
			}
		}
	}
}

func (w *Worker) supportedTypes() []models.JobType {
	var supported []models.JobType
	for _, jobType := range models.AllJobTypes {
		if w.processorFor(jobType) != nil {
			supported = append(supported, jobType)
		}
	}
	return supported
}

func (w *Worker) processorFor(jobType models.JobType) JobProcessor {
	for _, p := range w.processors {
		if p.CanProcess(jobType) {
			return p
		}
	}
	return nil
}

// processNextJob claims and processes the next available job
func (w *Worker) processNextJob(ctx context.Context) error {
	supported := w.supportedTypes()
	if len(supported) == 0 {
		return fmt.Errorf("no job processors registered")
	}

	job, err := w.jobService.ClaimNextJob(ctx, w.id, supported)
	if err != nil {
		if errors.Is(err, jobs.ErrNoJobsAvailable) {
			return nil
		}
		return err
	}

	log := w.log.WithFields(logrus.Fields{
		"job_id":   job.ID,
		"job_type": job.Type,
		"attempt":  job.RetryCount + 1,
	})
	log.Debug("Claimed job")

	processor := w.processorFor(job.Type)
	if processor == nil {
		return fmt.Errorf("no processor found for job type %s", job.Type)
	}

	jobCtx := ctx
	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, w.jobTimeout)
		defer cancel()
	}

	start := time.Now()
	if err := processor.ProcessJob(jobCtx, job); err != nil {
		failed, failErr := w.jobService.FailJob(ctx, job.ID, err)
		if failErr != nil {
			log.WithError(failErr).Error("Failed to mark job as failed")
			return fmt.Errorf("job processing failed: %w", err)
		}
		if failed.Status == models.JobStatusPermanentlyFailed {
			abandon(ctx, processor, failed)
		}
		return fmt.Errorf("job processing failed: %w", err)
	}

	elapsed := time.Since(start)
	result := models.JobResult{"duration_ms": elapsed.Milliseconds(), "worker_id": w.id}
	if err := w.jobService.CompleteJob(ctx, job.ID, result); err != nil {
		return fmt.Errorf("completing job %d: %w", job.ID, err)
	}

	log.WithField("elapsed", elapsed.Round(time.Millisecond)).Info("Job completed")
	return nil
}

// abandon lets the processor settle the target of a job that will not run again
func abandon(ctx context.Context, processor JobProcessor, job *models.Job) {
	handler, ok := processor.(AbandonHandler)
	if !ok {
		return
	}
	if err := handler.JobAbandoned(ctx, job); err != nil {
		logger.WithComponent("worker").WithError(err).WithField("job_id", job.ID).Error("Failed to settle abandoned job")
	}
}

// WorkerPool manages multiple workers
type WorkerPool struct {
	workers    []*Worker
	jobService jobs.Service
	processors []JobProcessor
	mu         sync.RWMutex
	started    bool
	staleAfter time.Duration
	reaperStop chan struct{}
	reaperWg   sync.WaitGroup
	log        *logrus.Entry
}

// PoolOptions configure a worker pool
type PoolOptions struct {
	Workers      int
	PollInterval time.Duration
	JobTimeout   time.Duration
	// StaleAfter enables the reaper, which fails jobs left processing
	// longer than this by a worker that died.
	StaleAfter time.Duration
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(jobService jobs.Service, opts PoolOptions) *WorkerPool {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	pool := &WorkerPool{
		jobService: jobService,
		workers:    make([]*Worker, opts.Workers),
		log:        logger.WithComponent("worker_pool"),
	}

	for i := 0; i < opts.Workers; i++ {
		workerID := fmt.Sprintf("worker-%d", i+1)
		pool.workers[i] = NewWorker(workerID, jobService, opts.PollInterval, opts.JobTimeout)
	}

	pool.staleAfter = opts.StaleAfter
	return pool
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

// Size returns the number of workers in the pool
func (p *WorkerPool) Size() int {
	return len(p.workers)
}

// Running reports whether Start has been called without a matching Stop
func (p *WorkerPool) Running() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.started
}

// Start starts all workers and, when configured, the stale job reaper
func (p *WorkerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("worker pool already started")
	}

	p.log.Infof("Starting worker pool with %d workers", len(p.workers))

	for _, worker := range p.workers {
		worker.Start(ctx)
	}

	if p.staleAfter > 0 {
		p.reaperStop = make(chan struct{})
		p.reaperWg.Add(1)
		go p.reap(ctx, p.reaperStop)
	}

	p.started = true
	return nil
}

// Stop stops all workers gracefully
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	reaperStop := p.reaperStop
	p.reaperStop = nil
	p.mu.Unlock()

	p.log.Info("Stopping worker pool")

	if reaperStop != nil {
		close(reaperStop)
		p.reaperWg.Wait()
	}
	for _, worker := range p.workers {
		worker.Stop()
	}
}

// reap periodically fails jobs whose worker stopped reporting. Jobs that
// exhaust their attempts this way are handed to their processor.
func (p *WorkerPool) reap(ctx context.Context, stop <-chan struct{}) {
	defer p.reaperWg.Done()

	interval := p.staleAfter / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			p.ReapStaleJobs(ctx)
		}
	}
}

// ReapStaleJobs runs one reaper pass and returns the number of jobs that
// were abandoned.
func (p *WorkerPool) ReapStaleJobs(ctx context.Context) int {
	exhausted, err := p.jobService.ReleaseStaleJobs(ctx, p.staleAfter)
	if err != nil {
		p.log.WithError(err).Warn("Failed to release stale jobs")
	}

	p.mu.RLock()
	processors := p.processors
	p.mu.RUnlock()

	for _, job := range exhausted {
		for _, processor := range processors {
			if processor.CanProcess(job.Type) {
				abandon(ctx, processor, job)
				break
			}
		}
	}
	return len(exhausted)
}
