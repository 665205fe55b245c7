// Package tasks dispatches ingestion work to a bounded worker pool,
// decoupling document submission from pipeline execution.
package tasks

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kotae-ai/kotae/internal/models"
)

// Runner executes ingestion for one document. Implemented by the pipeline.
type Runner interface {
	Run(ctx context.Context, docID string) error
}

// Defaults for the dispatch queue.
const (
	DefaultWorkers     = 2
	DefaultQueueSize   = 256
	DefaultMaxAttempts = 3
	DefaultBackoff     = 2 * time.Second
)

// Config tunes the queue.
type Config struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
	Backoff     time.Duration
}

// Queue runs document ingestion on a fixed worker pool. Submissions
// coalesce per document: while a document is queued or running, further
// submissions for it are no-ops.
type Queue struct {
	runner Runner
	cfg    Config
	logger *zap.Logger

	jobs     chan string
	inFlight map[string]bool
	mu       sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates and starts the queue.
func New(runner Runner, cfg Config, logger *zap.Logger) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		runner:   runner,
		cfg:      cfg,
		logger:   logger,
		jobs:     make(chan string, cfg.QueueSize),
		inFlight: make(map[string]bool),
		ctx:      ctx,
		cancel:   cancel,
	}
	for i := 0; i < cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// Submit enqueues a document for ingestion. Returns false when the
// document is already queued or running, or the queue is full or stopped.
func (q *Queue) Submit(docID string) bool {
	q.mu.Lock()
	if q.inFlight[docID] {
		q.mu.Unlock()
		return false
	}
	q.inFlight[docID] = true
	q.mu.Unlock()

	if q.ctx.Err() == nil {
		select {
		case q.jobs <- docID:
			return true
		default:
		}
	}
	q.mu.Lock()
	delete(q.inFlight, docID)
	q.mu.Unlock()
	return false
}

// Pending returns the number of documents queued or running.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inFlight)
}

// Stop shuts the queue down, waiting for running executions to finish.
// Queued but unstarted documents are dropped; their rows stay in whatever
// state they were last persisted in.
func (q *Queue) Stop() {
	q.cancel()
	q.wg.Wait()
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case docID := <-q.jobs:
			q.process(docID)
		}
	}
}

// process runs ingestion with bounded retries. Failures the pipeline has
// already settled as terminal (recorded on the document) are not retried;
// contention and transient errors are.
func (q *Queue) process(docID string) {
	defer func() {
		q.mu.Lock()
		delete(q.inFlight, docID)
		q.mu.Unlock()
	}()

	for attempt := 1; attempt <= q.cfg.MaxAttempts; attempt++ {
		err := q.runner.Run(q.ctx, docID)
		if err == nil {
			return
		}
		if errors.Is(err, models.ErrNotFound) {
			q.logger.Debug("document vanished before ingestion", zap.String("document_id", docID))
			return
		}
		if !retryable(err) {
			q.logger.Warn("ingestion settled as failed",
				zap.String("document_id", docID), zap.Error(err))
			return
		}
		q.logger.Info("retrying ingestion",
			zap.String("document_id", docID),
			zap.Int("attempt", attempt),
			zap.Error(err))
		select {
		case <-q.ctx.Done():
			return
		case <-time.After(q.cfg.Backoff * time.Duration(attempt)):
		}
	}
	q.logger.Warn("ingestion gave up after max attempts", zap.String("document_id", docID))
}

// retryable reports whether a run error is worth another attempt. Lease
// contention resolves itself; everything else was recorded on the document
// and needs an explicit resubmit.
func retryable(err error) bool {
	return errors.Is(err, models.ErrLeaseHeld)
}
