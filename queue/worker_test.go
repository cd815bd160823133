package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixbase/fixbase/core"
	"github.com/fixbase/fixbase/storage"
	"github.com/fixbase/fixbase/storage/badger"
)

// waitFor polls condition until it holds or the deadline lapses.
func waitFor(t *testing.T, timeout time.Duration, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func completingHandler(jobs storage.JobRepository) Handler {
	return HandlerFunc(func(ctx context.Context, job *core.IngestionJob) error {
		job.Status = core.JobCompleted
		job.FinishedAt = time.Now().UTC()
		return jobs.PutJob(ctx, job)
	})
}

func TestWorkersDrainQueue(t *testing.T) {
	store := badger.MustMemoryStore()
	defer store.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q, err := New(store)
	require.NoError(t, err)

	base := time.Now().UTC()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(ctx, pendingJob(id, 0, base)))
		base = base.Add(time.Millisecond)
	}

	workers, err := NewWorkers(q, store, completingHandler(store),
		WithWorkerCount(2),
		WithPollInterval(10*time.Millisecond),
		WithWorkerName("test-worker"))
	require.NoError(t, err)
	defer workers.Release()

	go workers.Run(ctx)

	waitFor(t, 5*time.Second, func() bool {
		done, err := store.CountJobsByStatus(context.Background(), core.JobCompleted)
		return err == nil && done == 3
	})
	cancel()

	depth, err := q.Depth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, depth)

	for _, id := range []string{"a", "b", "c"} {
		job, err := store.GetJob(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, core.JobCompleted, job.Status)
		assert.Equal(t, "test-worker", job.ClaimedBy)
	}
}

func TestWorkersMarkHandlerFailure(t *testing.T) {
	store := badger.MustMemoryStore()
	defer store.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q, err := New(store)
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(ctx, pendingJob("doomed", 0, time.Now().UTC())))

	handler := HandlerFunc(func(ctx context.Context, job *core.IngestionJob) error {
		return assert.AnError
	})
	workers, err := NewWorkers(q, store, handler,
		WithWorkerCount(1), WithPollInterval(10*time.Millisecond))
	require.NoError(t, err)
	defer workers.Release()

	go workers.Run(ctx)

	waitFor(t, 5*time.Second, func() bool {
		job, err := store.GetJob(context.Background(), "doomed")
		return err == nil && job.Status == core.JobFailed
	})
	cancel()

	job, err := store.GetJob(context.Background(), "doomed")
	require.NoError(t, err)
	assert.Equal(t, core.JobFailed, job.Status)
	assert.NotEmpty(t, job.Errors)
	assert.False(t, job.FinishedAt.IsZero())
}
