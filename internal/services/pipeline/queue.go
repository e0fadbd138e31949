package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/repono/internal/common"
	"github.com/ternarybob/repono/internal/interfaces"
)

// ErrQueueFull is returned when the job buffer is at capacity. Callers
// surface this as a 503 so submitters can back off.
var ErrQueueFull = errors.New("processing queue is full")

// ErrQueueStopped is returned when jobs are enqueued after shutdown began
var ErrQueueStopped = errors.New("processing queue is stopped")

// job is one queued processing request
type job struct {
	urlID   string
	account string
}

// Queue is the in-process work queue between the submission handler and the
// pipeline workers. Submissions enqueue and return immediately; a bounded
// buffer plus a fixed worker count give the fire-and-forget flow the
// backpressure and shutdown point it otherwise lacks.
type Queue struct {
	jobs        chan job
	pipeline    interfaces.Pipeline
	logger      arbor.ILogger
	concurrency int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	stopped     bool
	mu          sync.Mutex
}

// NewQueue creates a queue sized from configuration
func NewQueue(p interfaces.Pipeline, config *common.QueueConfig, logger arbor.ILogger) *Queue {
	concurrency := config.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	bufferSize := config.BufferSize
	if bufferSize <= 0 {
		bufferSize = 256
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Queue{
		jobs:        make(chan job, bufferSize),
		pipeline:    p,
		logger:      logger,
		concurrency: concurrency,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start launches the worker goroutines
func (q *Queue) Start() {
	q.logger.Info().
		Int("concurrency", q.concurrency).
		Int("buffer_size", cap(q.jobs)).
		Msg("Starting pipeline worker pool")

	for i := 0; i < q.concurrency; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

// Enqueue accepts a processing job without blocking. Returns ErrQueueFull
// when the buffer is at capacity.
func (q *Queue) Enqueue(urlID, account string) error {
	q.mu.Lock()
	stopped := q.stopped
	q.mu.Unlock()
	if stopped {
		return ErrQueueStopped
	}

	select {
	case q.jobs <- job{urlID: urlID, account: account}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop cancels the workers and waits for in-flight jobs to finish
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.mu.Unlock()

	q.logger.Info().Msg("Stopping pipeline worker pool")
	q.cancel()
	q.wg.Wait()
}

// worker is the main loop consuming jobs until shutdown
func (q *Queue) worker(workerID int) {
	defer q.wg.Done()

	q.logger.Debug().Int("worker_id", workerID).Msg("Pipeline worker started")

	for {
		select {
		case <-q.ctx.Done():
			q.logger.Debug().Int("worker_id", workerID).Msg("Pipeline worker stopped")
			return

		case j := <-q.jobs:
			start := time.Now()
			if err := q.pipeline.Process(q.ctx, j.urlID, j.account); err != nil {
				q.logger.Warn().
					Err(err).
					Int("worker_id", workerID).
					Str("url_id", j.urlID).
					Msg("Pipeline processing returned error")
			} else {
				q.logger.Debug().
					Int("worker_id", workerID).
					Str("url_id", j.urlID).
					Dur("duration", time.Since(start)).
					Msg("Pipeline processing finished")
			}
		}
	}
}
