package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fixbase/fixbase/core"
	"github.com/fixbase/fixbase/storage"
)

func TestJobPutGetDelete(t *testing.T) {
	store := MustMemoryStore()
	defer store.Close()

	ctx := context.Background()

	job := &core.IngestionJob{
		Id:         "job-1",
		Source:     core.SourceRef{URL: "https://example.com/m.pdf"},
		Priority:   3,
		Status:     core.JobPending,
		EnqueuedAt: time.Now().UTC(),
	}

	if err := store.PutJob(ctx, job); err != nil {
		t.Fatalf("Failed to put job: %v", err)
	}

	got, err := store.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("Failed to get job: %v", err)
	}
	if got.Priority != 3 {
		t.Fatalf("Expected priority 3, got %d", got.Priority)
	}

	if err := store.DeleteJob(ctx, "job-1"); err != nil {
		t.Fatalf("Failed to delete job: %v", err)
	}
	if _, err := store.GetJob(ctx, "job-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestJobClaimExclusivity(t *testing.T) {
	store := MustMemoryStore()
	defer store.Close()

	ctx := context.Background()

	job := &core.IngestionJob{
		Id:         "job-claim",
		Status:     core.JobPending,
		EnqueuedAt: time.Now().UTC(),
	}
	if err := store.PutJob(ctx, job); err != nil {
		t.Fatalf("Failed to put job: %v", err)
	}

	deadline := time.Now().UTC().Add(10 * time.Minute)
	claimed, err := store.ClaimJob(ctx, "job-claim", "worker-a", deadline)
	if err != nil {
		t.Fatalf("First claim failed: %v", err)
	}
	if claimed.Status != core.JobRunning || claimed.ClaimedBy != "worker-a" {
		t.Fatalf("Expected running job claimed by worker-a, got %v/%s", claimed.Status, claimed.ClaimedBy)
	}

	// Second claim on the same job must fail
	if _, err := store.ClaimJob(ctx, "job-claim", "worker-b", deadline); !errors.Is(err, storage.ErrJobClaimed) {
		t.Fatalf("Expected ErrJobClaimed, got %v", err)
	}
}

func TestListJobsByStatusOrdering(t *testing.T) {
	store := MustMemoryStore()
	defer store.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	jobs := []*core.IngestionJob{
		{Id: "low-old", Priority: 1, Status: core.JobPending, EnqueuedAt: now.Add(-2 * time.Hour)},
		{Id: "high", Priority: 9, Status: core.JobPending, EnqueuedAt: now},
		{Id: "low-new", Priority: 1, Status: core.JobPending, EnqueuedAt: now.Add(-1 * time.Hour)},
		{Id: "done", Priority: 5, Status: core.JobCompleted, EnqueuedAt: now},
	}
	for _, j := range jobs {
		if err := store.PutJob(ctx, j); err != nil {
			t.Fatalf("Failed to put job %s: %v", j.Id, err)
		}
	}

	pending, err := store.ListJobsByStatus(ctx, core.JobPending)
	if err != nil {
		t.Fatalf("Failed to list pending jobs: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("Expected 3 pending jobs, got %d", len(pending))
	}
	want := []string{"high", "low-old", "low-new"}
	for i, w := range want {
		if pending[i].Id != w {
			t.Fatalf("Position %d: expected %s, got %s", i, w, pending[i].Id)
		}
	}

	count, err := store.CountJobsByStatus(ctx, core.JobCompleted)
	if err != nil {
		t.Fatalf("Failed to count jobs: %v", err)
	}
	if count != 1 {
		t.Fatalf("Expected 1 completed job, got %d", count)
	}
}
