// Package worker runs background leaderboard refreshes pulled off the
// refresh queue.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/stuffscore/internal/adapters/mq/queue"
	"github.com/okian/stuffscore/internal/adapters/repository"
	"github.com/okian/stuffscore/pkg/logger"
	"github.com/okian/stuffscore/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount  = 2
	defaultJobTimeout   = 30 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Refresher recomputes and publishes a population's leaderboard.
type Refresher interface {
	Refresh(ctx context.Context, population string) (*repository.Snapshot, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Pending is the set of populations with a job waiting in the queue.
type Pending interface {
	Unrecord(ctx context.Context, key string)
}

// Worker processes refresh jobs.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing refresh jobs.
type InMemoryWorker struct {
	queue      Queue
	pending    Pending
	refresher  Refresher
	name       string
	jobTimeout time.Duration

	// Shutdown control
	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	// Logging
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
// pending may be nil when jobs are not deduplicated.
func NewInMemoryWorker(q Queue, pending Pending, refresher Refresher, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:      q,
		pending:    pending,
		refresher:  refresher,
		name:       "worker", // default name
		jobTimeout: defaultJobTimeout,
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("worker"), // will be updated by options
	}

	// Apply all options
	for _, opt := range opts {
		opt(w)
	}

	// Set up logger with worker name if not already set
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				// Channel closed, worker should stop
				return
			}
			if err := w.processJob(ctx, job); err != nil {
				w.logger.Error(ctx, "refresh failed", logger.String("population", job.Population), logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	// Wait for worker to finish or context to timeout
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processJob refreshes one population.
func (w *InMemoryWorker) processJob(ctx context.Context, job queue.Job) error {
	// The job left the queue; a new request may queue another run.
	if w.pending != nil {
		w.pending.Unrecord(ctx, job.Population)
	}

	jctx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	snap, err := w.refresher.Refresh(jctx, job.Population)
	latency := time.Since(job.EnqueuedAt)
	metrics.RecordRefreshProcessed(job.Population, err, float64(latency.Microseconds())/1000)
	if err != nil {
		metrics.RecordErrorByComponent("worker", "refresh_error")
		return fmt.Errorf("refresh %s: %w", job.Population, err)
	}

	w.logger.Debug(ctx, "leaderboard refreshed",
		logger.String("population", job.Population),
		logger.String("reason", job.Reason),
		logger.Int("pitchers", snap.Len()),
		logger.Duration("latency", latency))
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	// Logging
	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, q Queue, pending Pending, refresher Refresher, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(q, pending, refresher, wopts...)
	}

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
	metrics.UpdateRefreshWorkers(len(p.workers))
}

// Shutdown closes the queue and waits for every worker to stop.
func (p *Pool) Shutdown(ctx context.Context) error {
	// First close the queue to stop new jobs
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	// Wait for all workers to finish or context to timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var firstErr error
	for i, worker := range p.workers {
		if err := worker.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	metrics.UpdateRefreshWorkers(0)
	return firstErr
}
