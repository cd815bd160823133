package badger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/fixbase/fixbase/core"
	"github.com/fixbase/fixbase/storage"
)

func TestFingerprintCheckAndRecord(t *testing.T) {
	store := MustMemoryStore()
	defer store.Close()

	ctx := context.Background()

	fp := &core.Fingerprint{
		Hash:   core.HashContent([]byte("manual contents")),
		Source: core.SourceRef{URL: "https://example.com/m.pdf"},
	}

	seen, err := store.CheckAndRecord(ctx, fp)
	if err != nil {
		t.Fatalf("First check failed: %v", err)
	}
	if seen {
		t.Fatal("Expected first check to report new content")
	}

	seen, err = store.CheckAndRecord(ctx, fp)
	if err != nil {
		t.Fatalf("Second check failed: %v", err)
	}
	if !seen {
		t.Fatal("Expected second check to report duplicate")
	}

	got, err := store.GetFingerprint(ctx, fp.Hash)
	if err != nil {
		t.Fatalf("Failed to get fingerprint: %v", err)
	}
	if got.Source.URL != "https://example.com/m.pdf" {
		t.Fatalf("Unexpected fingerprint source: %s", got.Source.URL)
	}
}

func TestFingerprintConcurrentCheckAndRecord(t *testing.T) {
	store := MustMemoryStore()
	defer store.Close()

	ctx := context.Background()
	hash := core.HashContent([]byte("racy content"))

	const workers = 8
	newCount := 0
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fp := &core.Fingerprint{Hash: hash}
			seen, err := store.CheckAndRecord(ctx, fp)
			if err != nil {
				t.Errorf("Check failed: %v", err)
				return
			}
			if !seen {
				mu.Lock()
				newCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if newCount != 1 {
		t.Fatalf("Expected exactly one worker to see new content, got %d", newCount)
	}
}

// Reads against a closed store must surface badger.ErrDBClosed rather than
// panic inside an iterator; callers degrade on that error.
func TestClosedStoreReturnsError(t *testing.T) {
	store := MustMemoryStore()
	if err := store.Close(); err != nil {
		t.Fatalf("Failed to close store: %v", err)
	}

	ctx := context.Background()

	if _, err := store.SearchKeywords(ctx, []string{"siemens"}, 5); !errors.Is(err, badger.ErrDBClosed) {
		t.Fatalf("Expected ErrDBClosed from SearchKeywords, got %v", err)
	}
	if _, err := store.GetAtom(ctx, 1); !errors.Is(err, badger.ErrDBClosed) {
		t.Fatalf("Expected ErrDBClosed from GetAtom, got %v", err)
	}
	if _, err := store.FindSimilar(ctx, []float32{1, 0}, 0, 5); !errors.Is(err, badger.ErrDBClosed) {
		t.Fatalf("Expected ErrDBClosed from FindSimilar, got %v", err)
	}
}

func TestReviewQueue(t *testing.T) {
	store := MustMemoryStore()
	defer store.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	entries := []*core.ReviewEntry{
		{Id: 2, Atom: core.Atom{Id: 2, Kind: core.KindConcept, Title: "newer", Summary: "s"}, Decision: core.ReviewPending, InsertedAt: now},
		{Id: 1, Atom: core.Atom{Id: 1, Kind: core.KindConcept, Title: "older", Summary: "s"}, Decision: core.ReviewPending, InsertedAt: now.Add(-time.Hour)},
		{Id: 3, Atom: core.Atom{Id: 3, Kind: core.KindConcept, Title: "decided", Summary: "s"}, Decision: core.ReviewApproved, InsertedAt: now},
	}
	for _, e := range entries {
		if err := store.PutReviewEntry(ctx, e); err != nil {
			t.Fatalf("Failed to put review entry: %v", err)
		}
	}

	pending, err := store.ListPendingReviews(ctx)
	if err != nil {
		t.Fatalf("Failed to list pending reviews: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("Expected 2 pending entries, got %d", len(pending))
	}
	if pending[0].Id != 1 {
		t.Fatalf("Expected oldest entry first, got id %d", pending[0].Id)
	}

	if err := store.DeleteReviewEntry(ctx, 1); err != nil {
		t.Fatalf("Failed to delete review entry: %v", err)
	}
	if err := store.DeleteReviewEntry(ctx, 1); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound on double delete, got %v", err)
	}
}

func TestRelationEndpoints(t *testing.T) {
	store := MustMemoryStore()
	defer store.Close()

	ctx := context.Background()

	rels := []*core.Relation{
		{FromId: 1, ToId: 2, Type: core.RelPrerequisiteOf},
		{FromId: 1, ToId: 3, Type: core.RelPartOf},
		{FromId: 4, ToId: 2, Type: core.RelFaultOf},
	}
	added, err := store.AddRelations(ctx, rels...)
	if err != nil {
		t.Fatalf("Failed to add relations: %v", err)
	}
	for _, rel := range added {
		if rel.Id == 0 {
			t.Fatal("Expected tuple-derived ID to be assigned")
		}
	}

	from1, err := store.GetRelationsFrom(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to get relations from: %v", err)
	}
	if len(from1) != 2 {
		t.Fatalf("Expected 2 relations from atom 1, got %d", len(from1))
	}

	to2, err := store.GetRelationsTo(ctx, 2)
	if err != nil {
		t.Fatalf("Failed to get relations to: %v", err)
	}
	if len(to2) != 2 {
		t.Fatalf("Expected 2 relations to atom 2, got %d", len(to2))
	}

	// Re-adding the same tuple is idempotent
	if _, err := store.AddRelations(ctx, &core.Relation{FromId: 1, ToId: 2, Type: core.RelPrerequisiteOf}); err != nil {
		t.Fatalf("Failed to re-add relation: %v", err)
	}
	from1, err = store.GetRelationsFrom(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to get relations from: %v", err)
	}
	if len(from1) != 2 {
		t.Fatalf("Expected re-add to be idempotent, got %d relations", len(from1))
	}
}

func TestRelationSupersede(t *testing.T) {
	store := MustMemoryStore()
	defer store.Close()

	ctx := context.Background()

	rel := &core.Relation{FromId: 10, ToId: 11, Type: core.RelSupersedes}
	if _, err := store.AddRelations(ctx, rel); err != nil {
		t.Fatalf("Failed to add relation: %v", err)
	}

	if err := store.MarkSuperseded(ctx, rel.Id); err != nil {
		t.Fatalf("Failed to mark superseded: %v", err)
	}

	got, err := store.GetRelation(ctx, rel.Id)
	if err != nil {
		t.Fatalf("Failed to get relation: %v", err)
	}
	if !got.Superseded {
		t.Fatal("Expected relation to be superseded")
	}
}

func TestFailedIngestionLifecycle(t *testing.T) {
	store := MustMemoryStore()
	defer store.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	source := core.SourceRef{URL: "https://example.com/bad.pdf"}

	failure := &core.FailedIngestion{
		Source:      source,
		Stage:       "extract",
		Message:     "corrupt pdf",
		NextRetryAt: now.Add(-time.Minute),
	}
	recorded, err := store.RecordFailure(ctx, failure)
	if err != nil {
		t.Fatalf("Failed to record failure: %v", err)
	}
	if recorded.Id != core.FailedIngestionID(source, "extract") {
		t.Fatal("Expected deterministic failure ID")
	}

	due, err := store.ListDueFailures(ctx, now)
	if err != nil {
		t.Fatalf("Failed to list due failures: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("Expected 1 due failure, got %d", len(due))
	}

	// Same source and stage collapses into one entry
	repeat := &core.FailedIngestion{
		Source:      source,
		Stage:       "extract",
		Message:     "corrupt pdf again",
		RetryCount:  1,
		NextRetryAt: now.Add(time.Hour),
	}
	if _, err := store.RecordFailure(ctx, repeat); err != nil {
		t.Fatalf("Failed to record repeat failure: %v", err)
	}

	unresolved, err := store.ListUnresolvedFailures(ctx)
	if err != nil {
		t.Fatalf("Failed to list unresolved failures: %v", err)
	}
	if len(unresolved) != 1 {
		t.Fatalf("Expected failures to collapse to 1 entry, got %d", len(unresolved))
	}
	if unresolved[0].RetryCount != 1 {
		t.Fatalf("Expected retry count 1, got %d", unresolved[0].RetryCount)
	}

	// Not yet due after the retry push-out
	due, err = store.ListDueFailures(ctx, now)
	if err != nil {
		t.Fatalf("Failed to list due failures: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("Expected no due failures, got %d", len(due))
	}

	if err := store.MarkResolved(ctx, recorded.Id); err != nil {
		t.Fatalf("Failed to mark resolved: %v", err)
	}
	unresolved, err = store.ListUnresolvedFailures(ctx)
	if err != nil {
		t.Fatalf("Failed to list unresolved failures: %v", err)
	}
	if len(unresolved) != 0 {
		t.Fatalf("Expected no unresolved failures, got %d", len(unresolved))
	}
}
