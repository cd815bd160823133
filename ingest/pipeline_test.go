package ingest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixbase/fixbase/ai"
	"github.com/fixbase/fixbase/ai/mock"
	"github.com/fixbase/fixbase/backoff"
	"github.com/fixbase/fixbase/core"
	"github.com/fixbase/fixbase/storage"
	"github.com/fixbase/fixbase/storage/badger"
)

// fastRetry keeps failure-path tests from sleeping through real backoff.
func fastRetry() backoff.Policy {
	return backoff.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func testJob(url string) *core.IngestionJob {
	return &core.IngestionJob{
		Id:     "test-job-" + url,
		Source: core.SourceRef{URL: url},
		Status: core.JobRunning,
	}
}

func newTestPipeline(t *testing.T, store storage.Store, provider ai.AIProvider, opts ...Option) *Pipeline {
	t.Helper()
	p, err := NewPipeline(store, provider, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func acceptCandidate(title string) ai.AtomCandidate {
	return ai.AtomCandidate{
		Kind:    "concept",
		Title:   title,
		Summary: "The DC link couples the rectifier and inverter stages.",
		Body: "The DC link is the energy buffer between the rectifier and the " +
			"inverter. Its voltage must stay within the configured window or the " +
			"drive trips with an undervoltage fault.",
		Keywords:  []string{"dc link", strings.ToLower(title)},
		Citations: []ai.CandidateCitation{{URL: "https://example.com/manual.pdf"}},
	}
}

func TestPipelineAcceptReviewSplit(t *testing.T) {
	store := badger.MustMemoryStore()
	defer store.Close()

	// Every paragraph stays under the 900-char chunk bound so the splitter
	// yields exactly one chunk per paragraph.
	paragraph := func(s string) string {
		return strings.Repeat(s+" ", 12)
	}
	payload := paragraph("First section prose about the DC link and its voltage window.") + "\n\n" +
		paragraph("Second section prose about resetting faults after supply loss.") + "\n\n" +
		paragraph("Third section prose about parameter backups before firmware updates.")

	provider := mock.NewMockProvider().(*mock.MockProvider)
	provider.GetMockGenerator().GenerateFunc = func(ctx context.Context, chunk ai.Chunk) ([]ai.AtomCandidate, error) {
		switch chunk.Index {
		case 0:
			return []ai.AtomCandidate{acceptCandidate("Atom A")}, nil
		case 1:
			return []ai.AtomCandidate{acceptCandidate("Atom B")}, nil
		default:
			// Short body and no citations: lands in the review band
			return []ai.AtomCandidate{{
				Kind:    "concept",
				Title:   "Atom C",
				Summary: "A marginal candidate.",
				Body:    "Too thin.",
			}}, nil
		}
	}

	p := newTestPipeline(t, store, provider, WithChunkBounds(900, 0))
	job := testJob("https://example.com/manual.pdf")

	result, err := p.Run(context.Background(), job, []byte(payload), "text/plain")
	require.NoError(t, err)

	require.Equal(t, 3, provider.GetMockGenerator().CallCount(), "one chunk per paragraph")
	assert.Equal(t, 2, result.AtomsCreated)
	assert.Equal(t, 0, result.AtomsFailed)
	assert.Empty(t, result.Errors)
	assert.True(t, result.Success())

	count, err := store.CountAtoms(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	pending, err := store.ListPendingReviews(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Atom C", pending[0].Atom.Title)

	assert.Equal(t, core.JobCompleted, job.Status)
	assert.Equal(t, 2, job.AtomsCreated)
	assert.Contains(t, job.StageTimings, StageExtract)
	assert.Contains(t, job.StageTimings, StageGenerate)
}

func TestPipelineDuplicateShortCircuit(t *testing.T) {
	store := badger.MustMemoryStore()
	defer store.Close()

	provider := mock.NewMockProvider().(*mock.MockProvider)
	gen := provider.GetMockGenerator()
	emb := provider.GetMockEmbedder()

	p := newTestPipeline(t, store, provider)
	payload := []byte(strings.Repeat("Prose about drive commissioning and parameter sets. ", 10))

	first, err := p.Run(context.Background(), testJob("https://example.com/doc"), payload, "text/plain")
	require.NoError(t, err)
	require.Greater(t, first.AtomsCreated, 0)
	require.True(t, first.Success())

	genCalls := gen.CallCount()
	embCalls := emb.CallCount()
	require.Greater(t, genCalls, 0)

	// Byte-identical re-ingest: zero atoms, no errors, success, and no new
	// generator or embedder calls
	job := testJob("https://example.com/doc")
	second, err := p.Run(context.Background(), job, payload, "text/plain")
	require.NoError(t, err)

	assert.True(t, second.Duplicate)
	assert.Equal(t, 0, second.AtomsCreated)
	assert.Empty(t, second.Errors)
	assert.True(t, second.Success())
	assert.Equal(t, core.JobCompleted, job.Status)

	assert.Equal(t, genCalls, gen.CallCount(), "generator must not run on duplicate content")
	assert.Equal(t, embCalls, emb.CallCount(), "embedder must not run on duplicate content")
}

func TestPipelineDedupCostInvariant(t *testing.T) {
	store := badger.MustMemoryStore()
	defer store.Close()

	provider := mock.NewMockProvider().(*mock.MockProvider)
	p := newTestPipeline(t, store, provider)
	payload := []byte(strings.Repeat("Prose describing the braking resistor sizing rules. ", 10))

	for i := 0; i < 5; i++ {
		_, err := p.Run(context.Background(), testJob("https://example.com/doc"), payload, "text/plain")
		require.NoError(t, err)
	}

	// One chunk's worth of calls, regardless of how many times it was submitted
	assert.Equal(t, 1, provider.GetMockGenerator().CallCount())
	assert.Equal(t, 1, provider.GetMockEmbedder().CallCount())
}

func TestPipelineEmptyPayloadFailsJob(t *testing.T) {
	store := badger.MustMemoryStore()
	defer store.Close()

	provider := mock.NewMockProvider().(*mock.MockProvider)
	p := newTestPipeline(t, store, provider)
	job := testJob("https://example.com/broken")

	result, err := p.Run(context.Background(), job, []byte("   "), "text/plain")
	require.NoError(t, err)

	assert.False(t, result.Success())
	assert.NotEmpty(t, result.Errors)
	assert.Equal(t, core.JobFailed, job.Status)

	failures, err := store.ListUnresolvedFailures(context.Background())
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, StageExtract, failures[0].Stage)
}

func TestPipelineGenerationFailureIsolatedPerChunk(t *testing.T) {
	store := badger.MustMemoryStore()
	defer store.Close()

	paragraph := func(s string) string {
		return strings.Repeat(s+" ", 14)
	}
	payload := paragraph("First section prose about inverter cooling requirements today.") + "\n\n" +
		paragraph("Second section prose about encoder feedback wiring and shields.")

	provider := mock.NewMockProvider().(*mock.MockProvider)
	provider.GetMockGenerator().GenerateFunc = func(ctx context.Context, chunk ai.Chunk) ([]ai.AtomCandidate, error) {
		if chunk.Index == 0 {
			return nil, assert.AnError
		}
		return []ai.AtomCandidate{acceptCandidate("Surviving atom")}, nil
	}

	p := newTestPipeline(t, store, provider, WithChunkBounds(900, 0), WithRetryPolicy(fastRetry()))
	job := testJob("https://example.com/partial")

	result, err := p.Run(context.Background(), job, []byte(payload), "text/plain")
	require.NoError(t, err)

	// One chunk failed, the other still produced its atom
	assert.Equal(t, 1, result.AtomsCreated)
	assert.NotEmpty(t, result.Errors)
	assert.True(t, result.Success())
	assert.Equal(t, core.JobPartial, job.Status)
}

// Fans eight chunks out over an eight-worker pool; the mock call counters
// must stay exact under concurrent use.
func TestPipelineConcurrentChunkCalls(t *testing.T) {
	store := badger.MustMemoryStore()
	defer store.Close()

	sections := []string{
		"inverter cooling airflow", "encoder feedback wiring",
		"braking resistor sizing", "motor insulation testing",
		"parameter backup steps", "fieldbus fault isolation",
		"supply phase monitoring", "firmware update sequence",
	}
	var parts []string
	for _, s := range sections {
		parts = append(parts, strings.Repeat("Prose about "+s+". ", 20))
	}
	payload := strings.Join(parts, "\n\n")

	provider := mock.NewMockProvider().(*mock.MockProvider)
	gen := provider.GetMockGenerator()
	emb := provider.GetMockEmbedder()

	p := newTestPipeline(t, store, provider, WithChunkBounds(900, 0), WithPoolSize(8))
	job := testJob("https://example.com/large-manual")

	result, err := p.Run(context.Background(), job, []byte(payload), "text/plain")
	require.NoError(t, err)

	require.Equal(t, len(sections), result.AtomsCreated)
	assert.Equal(t, result.AtomsCreated, gen.CallCount())
	assert.Equal(t, result.AtomsCreated, emb.CallCount())
}

func TestPipelineAtomIDsDeterministic(t *testing.T) {
	source := core.SourceRef{URL: "https://example.com/doc"}
	hash := core.HashContent([]byte("payload"))

	a := core.AtomID(source, hash, 0)
	b := core.AtomID(source, hash, 0)
	c := core.AtomID(source, hash, 1)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
