package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fixbase/fixbase/core"
	"github.com/fixbase/fixbase/storage"
)

func TestAtomUpsertAndGet(t *testing.T) {
	store := MustMemoryStore()
	defer store.Close()

	ctx := context.Background()

	atom := &core.Atom{
		Id:           core.AtomID(core.SourceRef{URL: "https://example.com/m.pdf"}, "abc", 0),
		Kind:         core.KindConcept,
		Title:        "DC link",
		Summary:      "The DC link couples rectifier and inverter stages.",
		Manufacturer: "siemens",
		Keywords:     []string{"dc link", "inverter"},
	}

	if _, err := store.UpsertAtoms(ctx, atom); err != nil {
		t.Fatalf("Failed to upsert atom: %v", err)
	}
	if atom.InsertedAt.IsZero() {
		t.Fatal("Expected InsertedAt to be set")
	}

	got, err := store.GetAtom(ctx, atom.Id)
	if err != nil {
		t.Fatalf("Failed to get atom: %v", err)
	}
	if got.Title != "DC link" {
		t.Fatalf("Expected 'DC link', got '%s'", got.Title)
	}
}

func TestAtomUpsertIsIdempotent(t *testing.T) {
	store := MustMemoryStore()
	defer store.Close()

	ctx := context.Background()

	atom := &core.Atom{
		Id:       core.AtomID(core.SourceRef{URL: "u"}, "hash", 0),
		Kind:     core.KindFault,
		Title:    "F0003",
		Summary:  "Undervoltage trip.",
		Keywords: []string{"f0003"},
	}

	if _, err := store.UpsertAtoms(ctx, atom); err != nil {
		t.Fatalf("First upsert failed: %v", err)
	}
	firstInserted := atom.InsertedAt

	// Re-ingesting the same content rewrites the same row
	again := *atom
	again.InsertedAt = time.Time{}
	if _, err := store.UpsertAtoms(ctx, &again); err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}

	count, err := store.CountAtoms(ctx)
	if err != nil {
		t.Fatalf("Failed to count atoms: %v", err)
	}
	if count != 1 {
		t.Fatalf("Expected 1 atom after re-upsert, got %d", count)
	}

	got, err := store.GetAtom(ctx, atom.Id)
	if err != nil {
		t.Fatalf("Failed to get atom: %v", err)
	}
	if !got.InsertedAt.Equal(firstInserted) {
		t.Fatal("Expected InsertedAt to be preserved across upserts")
	}
}

func TestAtomGetNotFound(t *testing.T) {
	store := MustMemoryStore()
	defer store.Close()

	_, err := store.GetAtom(context.Background(), 12345)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestUpdateRelatedIds(t *testing.T) {
	store := MustMemoryStore()
	defer store.Close()

	ctx := context.Background()

	atom := &core.Atom{Id: 7, Kind: core.KindConcept, Title: "t", Summary: "s"}
	if _, err := store.UpsertAtoms(ctx, atom); err != nil {
		t.Fatalf("Failed to upsert atom: %v", err)
	}

	related := []core.ID{11, 13}
	if err := store.UpdateRelatedIds(ctx, atom.Id, related); err != nil {
		t.Fatalf("Failed to update related ids: %v", err)
	}

	got, err := store.GetAtom(ctx, atom.Id)
	if err != nil {
		t.Fatalf("Failed to get atom: %v", err)
	}
	if len(got.RelatedIds) != 2 || got.RelatedIds[0] != 11 || got.RelatedIds[1] != 13 {
		t.Fatalf("Expected RelatedIds [11 13], got %v", got.RelatedIds)
	}
	if got.UpdatedAt.Before(got.InsertedAt) {
		t.Fatal("Expected UpdatedAt to be bumped")
	}

	if err := store.UpdateRelatedIds(ctx, 99999, related); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for missing atom, got %v", err)
	}
}

func TestSearchKeywords(t *testing.T) {
	store := MustMemoryStore()
	defer store.Close()

	ctx := context.Background()

	atoms := []*core.Atom{
		{Id: 1, Kind: core.KindFault, Title: "F0003", Summary: "s", Keywords: []string{"siemens", "f0003", "undervoltage"}},
		{Id: 2, Kind: core.KindConcept, Title: "DC link", Summary: "s", Keywords: []string{"siemens", "dc link"}},
		{Id: 3, Kind: core.KindFault, Title: "E-30", Summary: "s", Keywords: []string{"fanuc", "e-30"}},
	}
	if _, err := store.UpsertAtoms(ctx, atoms...); err != nil {
		t.Fatalf("Failed to upsert atoms: %v", err)
	}

	results, err := store.SearchKeywords(ctx, []string{"siemens", "f0003"}, 10)
	if err != nil {
		t.Fatalf("Failed to search keywords: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	// Atom 1 matches both terms and must rank first
	if results[0].Atom.Id != 1 {
		t.Fatalf("Expected atom 1 first, got %d", results[0].Atom.Id)
	}
	if results[0].Score != 1.0 {
		t.Fatalf("Expected full-match score 1.0, got %f", results[0].Score)
	}
	if results[1].Score != 0.5 {
		t.Fatalf("Expected half-match score 0.5, got %f", results[1].Score)
	}
}

func TestSearchKeywordsAfterKeywordChange(t *testing.T) {
	store := MustMemoryStore()
	defer store.Close()

	ctx := context.Background()

	atom := &core.Atom{Id: 5, Kind: core.KindConcept, Title: "t", Summary: "s", Keywords: []string{"old-term"}}
	if _, err := store.UpsertAtoms(ctx, atom); err != nil {
		t.Fatalf("Failed to upsert atom: %v", err)
	}

	atom.Keywords = []string{"new-term"}
	if _, err := store.UpsertAtoms(ctx, atom); err != nil {
		t.Fatalf("Failed to re-upsert atom: %v", err)
	}

	stale, err := store.SearchKeywords(ctx, []string{"old-term"}, 10)
	if err != nil {
		t.Fatalf("Failed to search keywords: %v", err)
	}
	if len(stale) != 0 {
		t.Fatalf("Expected stale index entry to be removed, got %d results", len(stale))
	}

	fresh, err := store.SearchKeywords(ctx, []string{"new-term"}, 10)
	if err != nil {
		t.Fatalf("Failed to search keywords: %v", err)
	}
	if len(fresh) != 1 {
		t.Fatalf("Expected 1 result for new term, got %d", len(fresh))
	}
}

func TestFindSimilar(t *testing.T) {
	store := MustMemoryStore()
	defer store.Close()

	ctx := context.Background()

	atoms := []*core.Atom{
		{Id: 1, Kind: core.KindConcept, Title: "a", Summary: "s", Vector: []float32{1, 0, 0}},
		{Id: 2, Kind: core.KindConcept, Title: "b", Summary: "s", Vector: []float32{0.9, 0.1, 0}},
		{Id: 3, Kind: core.KindConcept, Title: "c", Summary: "s", Vector: []float32{0, 0, 1}},
		{Id: 4, Kind: core.KindConcept, Title: "d", Summary: "s"}, // no embedding
	}
	if _, err := store.UpsertAtoms(ctx, atoms...); err != nil {
		t.Fatalf("Failed to upsert atoms: %v", err)
	}

	results, err := store.FindSimilar(ctx, []float32{1, 0, 0}, 0.5, 10)
	if err != nil {
		t.Fatalf("Failed to find similar: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results above threshold, got %d", len(results))
	}
	if results[0].Atom.Id != 1 {
		t.Fatalf("Expected exact match first, got atom %d", results[0].Atom.Id)
	}
}
