package fixbase

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixbase/fixbase/ai/mock"
	"github.com/fixbase/fixbase/core"
	"github.com/fixbase/fixbase/coverage"
	"github.com/fixbase/fixbase/queue"
	"github.com/fixbase/fixbase/search"
)

func newTestSystem(t *testing.T, opts ...SystemOption) *System {
	t.Helper()
	opts = append([]SystemOption{
		WithInMemoryStore(),
		WithProvider(mock.NewMockProvider()),
	}, opts...)
	system, err := New("", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { system.Close() })
	return system
}

func TestNewSystem(t *testing.T) {
	t.Run("create on disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "fixbase_db")
		system, err := New(path, WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		require.NotNil(t, system)

		assert.NotNil(t, system.Store())
		assert.NotNil(t, system.Queue())
		assert.NotNil(t, system.Searcher())
		assert.NoError(t, system.Close())
	})

	t.Run("in memory", func(t *testing.T) {
		system := newTestSystem(t)
		assert.NotNil(t, system.Store())
	})
}

func TestSystemIngestAndSearch(t *testing.T) {
	system := newTestSystem(t)
	ctx := context.Background()

	payload := strings.Repeat("The braking resistor absorbs regenerative energy during deceleration. ", 8)
	result, err := system.Ingest(ctx, "https://example.com/braking.html", []byte(payload), "text/plain")
	require.NoError(t, err)
	require.True(t, result.Success())
	require.Greater(t, result.AtomsCreated, 0)

	results, err := system.SearchAtoms(ctx, "braking resistor regenerative", search.Filters{}, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestSystemIngestDuplicate(t *testing.T) {
	system := newTestSystem(t)
	ctx := context.Background()

	payload := []byte(strings.Repeat("Encoder feedback wiring needs shielded twisted pairs. ", 8))

	first, err := system.Ingest(ctx, "https://example.com/doc", payload, "text/plain")
	require.NoError(t, err)
	require.Greater(t, first.AtomsCreated, 0)

	second, err := system.Ingest(ctx, "https://example.com/doc", payload, "text/plain")
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, 0, second.AtomsCreated)
	assert.Empty(t, second.Errors)
	assert.True(t, second.Success())
}

func TestSystemEvaluateCoverageEnqueuesGapJob(t *testing.T) {
	system := newTestSystem(t)
	ctx := context.Background()

	// Empty store: the query routes to research and fires a gap job
	decision := system.EvaluateCoverage(ctx, "Siemens G120 F0003")
	require.Equal(t, coverage.RouteResearch, decision.Route)
	assert.Equal(t, "siemens", decision.Evaluation.Manufacturer)

	// The enqueue is asynchronous
	deadline := time.Now().Add(5 * time.Second)
	for {
		depth, err := system.Queue().Depth(ctx)
		require.NoError(t, err)
		if depth == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("gap job never enqueued")
		}
		time.Sleep(5 * time.Millisecond)
	}

	jobs, err := system.Store().ListJobsByStatus(ctx, core.JobPending)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Contains(t, jobs[0].Hints, "siemens")
	assert.Contains(t, jobs[0].Hints, "f0003")
}

func TestSystemWorkersProcessQueuedJob(t *testing.T) {
	system := newTestSystem(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payload := []byte(strings.Repeat("Line reactor sizing limits harmonic distortion on the supply. ", 8))
	fetcher := fetcherFunc(func(ctx context.Context, source core.SourceRef) ([]byte, string, error) {
		return payload, "text/plain", nil
	})

	job := &core.IngestionJob{Source: core.SourceRef{URL: "https://example.com/reactor"}}
	require.NoError(t, system.Enqueue(ctx, job))

	workers, err := system.NewWorkers(fetcher,
		queue.WithPollInterval(10*time.Millisecond))
	require.NoError(t, err)
	defer workers.Release()

	go workers.Run(ctx)

	deadline := time.Now().Add(5 * time.Second)
	for {
		stored, err := system.Store().GetJob(context.Background(), job.Id)
		if err == nil && stored.Status == core.JobCompleted {
			assert.Greater(t, stored.AtomsCreated, 0)
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("queued job never completed")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
}

func TestSystemReviewWorkflow(t *testing.T) {
	system := newTestSystem(t)
	ctx := context.Background()

	entry := &core.ReviewEntry{
		Id: 42,
		Atom: core.Atom{
			Id:      42,
			Kind:    core.KindConcept,
			Title:   "Marginal atom",
			Summary: "A candidate that needed review.",
			Body:    "Short body.",
			Source:  core.SourceRef{URL: "https://example.com/doc"},
		},
		Decision:   core.ReviewPending,
		InsertedAt: time.Now().UTC(),
	}
	require.NoError(t, system.Store().PutReviewEntry(ctx, entry))

	pending, err := system.PendingReviews(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	atom, err := system.ApproveReview(ctx, 42)
	require.NoError(t, err)
	assert.NotEmpty(t, atom.Vector, "approved atoms join vector search")

	stored, err := system.Store().GetAtom(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Marginal atom", stored.Title)

	pending, err = system.PendingReviews(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// Approving twice fails: the entry is gone
	_, err = system.ApproveReview(ctx, 42)
	assert.Error(t, err)
}

func TestSystemRejectReview(t *testing.T) {
	system := newTestSystem(t)
	ctx := context.Background()

	entry := &core.ReviewEntry{
		Id: 7,
		Atom: core.Atom{
			Id:      7,
			Kind:    core.KindConcept,
			Title:   "Rejected atom",
			Summary: "Not good enough.",
			Source:  core.SourceRef{URL: "https://example.com/doc"},
		},
		Decision:   core.ReviewPending,
		InsertedAt: time.Now().UTC(),
	}
	require.NoError(t, system.Store().PutReviewEntry(ctx, entry))
	require.NoError(t, system.RejectReview(ctx, 7))

	_, err := system.Store().GetAtom(ctx, 7)
	assert.Error(t, err, "rejected entries never become atoms")
}

func TestSystemSupersedeAtom(t *testing.T) {
	system := newTestSystem(t)
	ctx := context.Background()

	oldAtom := &core.Atom{
		Id:      1,
		Kind:    core.KindProcedure,
		Title:   "Reset drive (rev A)",
		Summary: "Outdated reset procedure.",
		Source:  core.SourceRef{URL: "https://example.com/rev-a"},
	}
	newAtom := &core.Atom{
		Id:      2,
		Kind:    core.KindProcedure,
		Title:   "Reset drive (rev B)",
		Summary: "Current reset procedure.",
		Source:  core.SourceRef{URL: "https://example.com/rev-b"},
	}
	related := &core.Atom{
		Id:      3,
		Kind:    core.KindConcept,
		Title:   "Drive control board",
		Summary: "The board the procedure touches.",
		Source:  core.SourceRef{URL: "https://example.com/board"},
	}
	_, err := system.Store().UpsertAtoms(ctx, oldAtom, newAtom, related)
	require.NoError(t, err)

	_, err = system.Store().AddRelations(ctx, &core.Relation{
		FromId: oldAtom.Id,
		ToId:   related.Id,
		Type:   core.RelPartOf,
	})
	require.NoError(t, err)

	require.NoError(t, system.SupersedeAtom(ctx, newAtom.Id, oldAtom.Id))

	fromNew, err := system.Store().GetRelationsFrom(ctx, newAtom.Id)
	require.NoError(t, err)
	require.Len(t, fromNew, 1)
	assert.Equal(t, core.RelSupersedes, fromNew[0].Type)
	assert.Equal(t, oldAtom.Id, fromNew[0].ToId)

	fromOld, err := system.Store().GetRelationsFrom(ctx, oldAtom.Id)
	require.NoError(t, err)
	require.Len(t, fromOld, 1)
	assert.True(t, fromOld[0].Superseded, "old atom's relations are retired")
}

// fetcherFunc adapts a function to the Fetcher interface.
type fetcherFunc func(ctx context.Context, source core.SourceRef) ([]byte, string, error)

func (f fetcherFunc) Fetch(ctx context.Context, source core.SourceRef) ([]byte, string, error) {
	return f(ctx, source)
}
