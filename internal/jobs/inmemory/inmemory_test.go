package inmemory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/settlement-tracker/internal/jobs"
	"github.com/dvloznov/settlement-tracker/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noBackoff(int) time.Duration { return time.Millisecond }

func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.JobStatus) *jobs.IngestSettlementJob {
	t.Helper()
	var got *jobs.IngestSettlementJob
	require.Eventually(t, func() bool {
		job, err := store.GetJob(context.Background(), jobID)
		if err != nil {
			return false
		}
		got = job
		return job.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func TestQueue_CompletesJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	m := metrics.New()
	q := NewQueue(store, QueueOptions{BufferSize: 4, Workers: 2, Backoff: noBackoff, Metrics: m})
	defer q.Close()

	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		ingest := job.(*jobs.IngestSettlementJob)
		ingest.ImportID = "imp-1"
		ingest.Records = 3
		return nil
	}))

	job := &jobs.IngestSettlementJob{GCSURI: "gs://bucket/report.xlsx"}
	require.NoError(t, q.PublishIngestSettlement(ctx, job))
	assert.NotEmpty(t, job.JobID)
	assert.Equal(t, jobs.DefaultMaxRetries, job.MaxRetries)

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, "imp-1", got.ImportID)
	assert.Equal(t, 3, got.Records)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.CompletedAt)
	assert.Empty(t, got.Error)

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.JobsFinished.WithLabelValues("completed")) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestQueue_RetriesThenFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(store, QueueOptions{MaxRetries: 2, Backoff: noBackoff})
	defer q.Close()

	var calls atomic.Int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		calls.Add(1)
		return errors.New("bigquery unavailable")
	}))

	job := &jobs.IngestSettlementJob{GCSURI: "gs://bucket/report.xlsx"}
	require.NoError(t, q.PublishIngestSettlement(ctx, job))

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Equal(t, 2, got.RetryCount)
	assert.Equal(t, "bigquery unavailable", got.Error)
	assert.Equal(t, int32(3), calls.Load())
}

func TestQueue_RetrySucceeds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(store, QueueOptions{Backoff: noBackoff})
	defer q.Close()

	var calls atomic.Int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		if calls.Add(1) == 1 {
			return errors.New("transient")
		}
		return nil
	}))

	job := &jobs.IngestSettlementJob{GCSURI: "gs://bucket/report.xlsx"}
	require.NoError(t, q.PublishIngestSettlement(ctx, job))

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, 1, got.RetryCount)
	assert.Empty(t, got.Error)
}

func TestQueue_ClosedRejectsWork(t *testing.T) {
	q := NewQueue(NewStore(), QueueOptions{})
	require.NoError(t, q.Stop(context.Background()))
	require.NoError(t, q.Stop(context.Background()), "stopping twice is a no-op")

	err := q.PublishIngestSettlement(context.Background(), &jobs.IngestSettlementJob{GCSURI: "gs://b/o"})
	assert.ErrorIs(t, err, jobs.ErrQueueClosed)

	err = q.Start(context.Background(), func(context.Context, jobs.Job) error { return nil })
	assert.ErrorIs(t, err, jobs.ErrQueueClosed)
}

func TestQueue_CallerKeepsOwnJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(store, QueueOptions{BufferSize: 200, Workers: 4, Backoff: noBackoff})
	defer q.Close()

	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		job.(*jobs.IngestSettlementJob).Records = 1
		return nil
	}))

	const n = 100
	published := make([]*jobs.IngestSettlementJob, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			job := &jobs.IngestSettlementJob{GCSURI: "gs://bucket/report.xlsx"}
			if err := q.PublishIngestSettlement(ctx, job); err != nil {
				t.Error(err)
				return
			}
			// Workers update their own copy, never this one.
			if job.Status != jobs.JobStatusPending || job.Records != 0 {
				t.Errorf("job %s changed after publish: %s", job.JobID, job.Status)
			}
			published[i] = job
		}(i)
	}
	wg.Wait()

	for _, job := range published {
		require.NotNil(t, job)
		got := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
		assert.Equal(t, 1, got.Records)
		assert.Equal(t, jobs.JobStatusPending, job.Status)
	}
}

func TestQueue_StopReleasesBlockedPublisher(t *testing.T) {
	q := NewQueue(NewStore(), QueueOptions{BufferSize: 1})

	// No workers: the first job fills the buffer, the second blocks.
	require.NoError(t, q.PublishIngestSettlement(context.Background(), &jobs.IngestSettlementJob{GCSURI: "gs://b/1"}))

	published := make(chan error, 1)
	go func() {
		published <- q.PublishIngestSettlement(context.Background(), &jobs.IngestSettlementJob{GCSURI: "gs://b/2"})
	}()

	stopped := make(chan error, 1)
	go func() { stopped <- q.Stop(context.Background()) }()

	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked by a waiting publisher")
	}

	select {
	case err := <-published:
		assert.ErrorIs(t, err, jobs.ErrQueueClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("publisher still blocked after Stop")
	}
}

func TestStore_GetJobReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	job := &jobs.IngestSettlementJob{JobID: "a", Status: jobs.JobStatusPending}
	require.NoError(t, s.SaveJob(ctx, job))
	job.Status = jobs.JobStatusFailed

	got, err := s.GetJob(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusPending, got.Status)

	_, err = s.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)

	assert.Error(t, s.SaveJob(ctx, &jobs.IngestSettlementJob{}))
}

func TestStore_ListJobs(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, j := range []*jobs.IngestSettlementJob{
		{JobID: "a", GCSURI: "gs://b/one.xlsx", Status: jobs.JobStatusCompleted},
		{JobID: "b", GCSURI: "gs://b/two.xlsx", Status: jobs.JobStatusFailed},
		{JobID: "c", GCSURI: "gs://b/one.xlsx", Status: jobs.JobStatusPending},
	} {
		j.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.SaveJob(ctx, j))
	}

	ids := func(list []*jobs.IngestSettlementJob) []string {
		out := make([]string, 0, len(list))
		for _, j := range list {
			out = append(out, j.JobID)
		}
		return out
	}

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   []string
	}{
		{"all newest first", jobs.JobFilter{}, []string{"c", "b", "a"}},
		{"by uri", jobs.JobFilter{GCSURI: "gs://b/one.xlsx"}, []string{"c", "a"}},
		{"by status", jobs.JobFilter{Status: jobs.JobStatusFailed}, []string{"b"}},
		{"limit", jobs.JobFilter{Limit: 2}, []string{"c", "b"}},
		{"offset", jobs.JobFilter{Offset: 1}, []string{"b", "a"}},
		{"offset past end", jobs.JobFilter{Offset: 5}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListJobs(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestStore_UpdateJobStatus(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.SaveJob(ctx, &jobs.IngestSettlementJob{JobID: "a", Status: jobs.JobStatusRunning}))

	require.NoError(t, s.UpdateJobStatus(ctx, "a", jobs.JobStatusFailed, "boom"))
	got, err := s.GetJob(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusFailed, got.Status)
	assert.Equal(t, "boom", got.Error)

	assert.ErrorIs(t, s.UpdateJobStatus(ctx, "missing", jobs.JobStatusFailed, ""), jobs.ErrJobNotFound)
}
