package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixbase/fixbase/backoff"
	"github.com/fixbase/fixbase/core"
	"github.com/fixbase/fixbase/storage/badger"
)

type captureQueue struct {
	jobs []*core.IngestionJob
	err  error
}

func (q *captureQueue) Enqueue(ctx context.Context, job *core.IngestionJob) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func TestSweepReenqueuesDueFailure(t *testing.T) {
	store := badger.MustMemoryStore()
	defer store.Close()
	ctx := context.Background()

	source := core.SourceRef{URL: "https://example.com/manual.pdf"}
	_, err := store.RecordFailure(ctx, &core.FailedIngestion{
		Source:      source,
		Stage:       StageGenerate,
		Message:     "model unreachable",
		NextRetryAt: time.Now().UTC().Add(-time.Minute),
	})
	require.NoError(t, err)

	queue := &captureQueue{}
	policy := backoff.Policy{MaxAttempts: 3, BaseDelay: time.Minute, MaxDelay: time.Hour}
	sweeper := NewSweeper(store, queue, policy, 0, nil)

	enqueued, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, enqueued)

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, source, queue.jobs[0].Source)
	assert.Equal(t, core.JobPending, queue.jobs[0].Status)
	assert.NotEmpty(t, queue.jobs[0].Id)

	updated, err := store.GetFailure(ctx, core.FailedIngestionID(source, StageGenerate))
	require.NoError(t, err)
	assert.Equal(t, 1, updated.RetryCount)
	assert.True(t, updated.NextRetryAt.After(time.Now().UTC()), "retry must be pushed into the future")
	assert.False(t, updated.Resolved)
}

func TestSweepSkipsExhaustedFailure(t *testing.T) {
	store := badger.MustMemoryStore()
	defer store.Close()
	ctx := context.Background()

	_, err := store.RecordFailure(ctx, &core.FailedIngestion{
		Source:      core.SourceRef{URL: "https://example.com/hopeless.pdf"},
		Stage:       StageExtract,
		Message:     "corrupt payload",
		RetryCount:  DefaultRetryCap,
		NextRetryAt: time.Now().UTC().Add(-time.Minute),
	})
	require.NoError(t, err)

	queue := &captureQueue{}
	sweeper := NewSweeper(store, queue, backoff.DefaultPolicy(), 0, nil)

	enqueued, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, enqueued)
	assert.Empty(t, queue.jobs)

	// Left unresolved for manual triage, schedule untouched
	unresolved, err := store.ListUnresolvedFailures(ctx)
	require.NoError(t, err)
	require.Len(t, unresolved, 1)
	assert.Equal(t, DefaultRetryCap, unresolved[0].RetryCount)
}

func TestSweepIgnoresFutureFailures(t *testing.T) {
	store := badger.MustMemoryStore()
	defer store.Close()
	ctx := context.Background()

	_, err := store.RecordFailure(ctx, &core.FailedIngestion{
		Source:      core.SourceRef{URL: "https://example.com/later.pdf"},
		Stage:       StageEmbed,
		NextRetryAt: time.Now().UTC().Add(time.Hour),
	})
	require.NoError(t, err)

	queue := &captureQueue{}
	sweeper := NewSweeper(store, queue, backoff.DefaultPolicy(), 0, nil)

	enqueued, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, enqueued)
	assert.Empty(t, queue.jobs)
}

func TestSweepEnqueueErrorKeepsSchedule(t *testing.T) {
	store := badger.MustMemoryStore()
	defer store.Close()
	ctx := context.Background()

	source := core.SourceRef{URL: "https://example.com/manual.pdf"}
	_, err := store.RecordFailure(ctx, &core.FailedIngestion{
		Source:      source,
		Stage:       StageGenerate,
		NextRetryAt: time.Now().UTC().Add(-time.Minute),
	})
	require.NoError(t, err)

	queue := &captureQueue{err: assert.AnError}
	sweeper := NewSweeper(store, queue, backoff.DefaultPolicy(), 0, nil)

	enqueued, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, enqueued)

	// The failure stays due so the next sweep tries again
	unchanged, err := store.GetFailure(ctx, core.FailedIngestionID(source, StageGenerate))
	require.NoError(t, err)
	assert.Equal(t, 0, unchanged.RetryCount)
}
