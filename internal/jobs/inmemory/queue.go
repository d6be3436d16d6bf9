package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/settlement-tracker/internal/jobs"
	"github.com/dvloznov/settlement-tracker/internal/logger"
	"github.com/dvloznov/settlement-tracker/internal/metrics"
	"github.com/google/uuid"
)

// QueueOptions configures a Queue. Zero fields take defaults.
type QueueOptions struct {
	// BufferSize is how many jobs can be queued before publishing blocks.
	BufferSize int

	// Workers is the number of jobs processed concurrently.
	Workers int

	// MaxRetries applies to jobs published without their own limit.
	MaxRetries int

	// Backoff returns the delay before the given retry attempt.
	Backoff func(attempt int) time.Duration

	// Metrics receives a count for every job reaching a final state.
	Metrics *metrics.Metrics
}

// LinearBackoff waits one second per attempt.
func LinearBackoff(attempt int) time.Duration {
	return time.Duration(attempt) * time.Second
}

// Queue is an in-memory implementation of job publisher and consumer.
// It uses Go channels for job distribution and is safe for concurrent use.
// Jobs do not survive a restart, so it suits single-instance deployments.
type Queue struct {
	jobChan   chan *jobs.IngestSettlementJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.JobStore
	opts      QueueOptions
	closed    bool
}

// NewQueue creates a new in-memory job queue.
func NewQueue(store jobs.JobStore, opts QueueOptions) *Queue {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 100
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = jobs.DefaultMaxRetries
	}
	if opts.Backoff == nil {
		opts.Backoff = LinearBackoff
	}
	return &Queue{
		jobChan:   make(chan *jobs.IngestSettlementJob, opts.BufferSize),
		closeChan: make(chan struct{}),
		store:     store,
		opts:      opts,
	}
}

// PublishIngestSettlement implements the Publisher interface.
// It enqueues a settlement ingestion job for asynchronous processing. The
// queue works on its own copy, so the caller may keep reading job.
func (q *Queue) PublishIngestSettlement(ctx context.Context, job *jobs.IngestSettlementJob) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return jobs.ErrQueueClosed
	}
	q.mu.RUnlock()

	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = q.opts.MaxRetries
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("PublishIngestSettlement: saving job: %w", err)
		}
	}

	// Blocks while the buffer is full; Stop unblocks it through closeChan.
	queued := *job
	select {
	case q.jobChan <- &queued:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return jobs.ErrQueueClosed
	}
}

// Start implements the Consumer interface.
// It starts the configured number of workers, each calling handler for the
// jobs it receives. Start does not block.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return jobs.ErrQueueClosed
	}
	q.mu.RUnlock()

	for i := 0; i < q.opts.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}

	return nil
}

// worker processes jobs from the queue.
func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}

			q.processJob(ctx, job, handler)
		}
	}
}

// processJob executes a single job with retry logic.
func (q *Queue) processJob(ctx context.Context, job *jobs.IngestSettlementJob, handler jobs.JobHandler) {
	log := logger.FromContext(ctx).With().
		Str("job_id", job.JobID).
		Str("gcs_uri", job.GCSURI).
		Logger()

	job.Status = jobs.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	q.save(ctx, job)

	err := handler(logger.WithContext(ctx, log), job)

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	if err != nil {
		job.Error = err.Error()

		if job.RetryCount < job.MaxRetries {
			job.RetryCount++
			job.Status = jobs.JobStatusRetrying
			q.save(ctx, job)

			backoff := q.opts.Backoff(job.RetryCount)
			log.Warn().Err(err).
				Int("retry", job.RetryCount).
				Dur("backoff", backoff).
				Msg("Job failed; retrying")

			time.AfterFunc(backoff, func() {
				job.Status = jobs.JobStatusPending
				job.StartedAt = nil
				job.CompletedAt = nil
				if err := q.PublishIngestSettlement(ctx, job); err != nil {
					log.Error().Err(err).Msg("Failed to re-enqueue job")
					job.Status = jobs.JobStatusFailed
					q.save(context.Background(), job)
					q.finished(job.Status)
				}
			})
			return
		}

		job.Status = jobs.JobStatusFailed
		log.Error().Err(err).Int("retries", job.RetryCount).Msg("Job failed")
	} else {
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
		log.Info().Msg("Job completed")
	}

	q.save(ctx, job)
	q.finished(job.Status)
}

func (q *Queue) save(ctx context.Context, job *jobs.IngestSettlementJob) {
	if q.store == nil {
		return
	}
	if err := q.store.SaveJob(ctx, job); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("job_id", job.JobID).Msg("Failed to save job state")
	}
}

func (q *Queue) finished(status jobs.JobStatus) {
	if q.opts.Metrics == nil {
		return
	}
	q.opts.Metrics.JobsFinished.WithLabelValues(string(status)).Inc()
}

// Stop implements the Consumer interface.
// It stops the queue and waits for all in-flight jobs to complete.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements the Publisher interface.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
