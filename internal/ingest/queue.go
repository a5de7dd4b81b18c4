package ingest

import (
	"context"
	"sync"

	"gitlab.com/yelinaung/expense-importer/internal/logger"
)

// Handler processes one job. It must honour ctx cancellation.
type Handler func(ctx context.Context, job Job)

type envelope struct {
	job Job
	ctx context.Context
}

// Queue is a bounded in-memory job queue drained by a fixed pool of workers.
// Every job runs under its own cancellable context. It is safe for concurrent use.
type Queue struct {
	jobs    chan envelope
	handler Handler
	workers int

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	closed  bool
	started bool

	baseCtx context.Context
	stopAll context.CancelFunc
	wg      sync.WaitGroup
}

// NewQueue creates a queue holding at most size waiting jobs, processed by
// workers goroutines once Start is called.
func NewQueue(size, workers int, handler Handler) *Queue {
	if size < 1 {
		size = 1
	}
	if workers < 1 {
		workers = 1
	}
	base, stop := context.WithCancel(context.Background())
	return &Queue{
		jobs:    make(chan envelope, size),
		handler: handler,
		workers: workers,
		cancels: make(map[string]context.CancelFunc),
		baseCtx: base,
		stopAll: stop,
	}
}

// Start launches the workers. Calling it more than once has no effect.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true

	for range q.workers {
		q.wg.Add(1)
		go q.worker()
	}
	logger.Log.Info().Int("workers", q.workers).Int("capacity", cap(q.jobs)).Msg("Ingestion queue started")
}

// Submit enqueues job without blocking. It returns ErrQueueFull when the
// buffer is full and ErrQueueClosed after Stop.
func (q *Queue) Submit(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	ctx, cancel := context.WithCancel(q.baseCtx)
	select {
	case q.jobs <- envelope{job: job, ctx: ctx}:
		q.cancels[job.StatementID] = cancel
		return nil
	default:
		cancel()
		return ErrQueueFull
	}
}

// Cancel cancels a queued or running job. It reports whether the job was known.
func (q *Queue) Cancel(id string) bool {
	q.mu.Lock()
	cancel, ok := q.cancels[id]
	q.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Len returns the number of jobs waiting for a worker.
func (q *Queue) Len() int {
	return len(q.jobs)
}

// Stop rejects new jobs, cancels queued and running ones and waits for the
// workers to drain the queue or for ctx to expire.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.jobs)
	started := q.started
	q.mu.Unlock()

	q.stopAll()

	if !started {
		// Nobody will drain the buffer; run the leftovers so they reach a final state.
		q.wg.Add(1)
		go q.worker()
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Log.Info().Msg("Ingestion queue stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()

	for env := range q.jobs {
		q.run(env)
	}
}

func (q *Queue) run(env envelope) {
	defer func() {
		q.mu.Lock()
		if cancel, ok := q.cancels[env.job.StatementID]; ok {
			cancel()
			delete(q.cancels, env.job.StatementID)
		}
		q.mu.Unlock()
	}()
	defer func() {
		if rec := recover(); rec != nil {
			logger.Log.Error().
				Interface("panic", rec).
				Str("statement_id", env.job.StatementID).
				Msg("Ingestion handler panicked")
		}
	}()

	q.handler(env.ctx, env.job)
}
