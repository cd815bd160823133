package storage

import (
	"context"
	"time"

	"github.com/fixbase/fixbase/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// FindSimilar finds atoms similar to the given vector.
	// Returns atoms with similarity >= minSimilarity, up to limit results.
	// Results are ordered by similarity score (highest first).
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error)

	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// AtomRepository provides operations for managing knowledge atoms.
type AtomRepository interface {
	Repository
	// UpsertAtoms stores one or more atoms, overwriting existing entries with
	// the same ID. Atom IDs are content-derived, so re-ingesting the same
	// content rewrites the same rows instead of duplicating them.
	// Sets InsertedAt on first insert and UpdatedAt on every write.
	// Keyword index entries are maintained as part of the same transaction.
	UpsertAtoms(ctx context.Context, atoms ...*core.Atom) ([]*core.Atom, error)

	// GetAtom retrieves a single atom by ID.
	// Returns ErrNotFound if the atom doesn't exist.
	GetAtom(ctx context.Context, id core.ID) (*core.Atom, error)

	// GetAtoms retrieves multiple atoms by their IDs.
	// Returns only the atoms that exist (no error for missing atoms).
	GetAtoms(ctx context.Context, ids ...core.ID) ([]*core.Atom, error)

	// UpdateRelatedIds replaces the RelatedIds of an existing atom and bumps
	// UpdatedAt. This is the only permitted in-place mutation of a stored
	// atom; all other changes go through supersession.
	UpdateRelatedIds(ctx context.Context, id core.ID, relatedIds []core.ID) error

	// SearchKeywords finds atoms whose keyword index entries match the given
	// terms. Scores reflect the fraction of query terms matched. Results are
	// ordered by score (highest first), up to limit.
	SearchKeywords(ctx context.Context, terms []string, limit int) ([]*core.SearchResult, error)

	// CountAtoms returns the total number of stored atoms.
	CountAtoms(ctx context.Context) (int, error)
}

// FingerprintRepository is the deduplication ledger for ingested content.
type FingerprintRepository interface {
	// CheckAndRecord atomically checks whether the fingerprint's hash is
	// already known, recording it if not. Returns true when the hash was
	// already present (the content is a duplicate). Concurrent calls with the
	// same hash resolve so that exactly one caller sees false.
	CheckAndRecord(ctx context.Context, fp *core.Fingerprint) (bool, error)

	// GetFingerprint retrieves a fingerprint by content hash.
	// Returns ErrNotFound if the hash has never been recorded.
	GetFingerprint(ctx context.Context, hash string) (*core.Fingerprint, error)
}

// JobRepository provides persistence for ingestion jobs. Scheduling policy
// (priority order, backpressure, liveness) lives in the queue package; this
// interface only covers durable state transitions.
type JobRepository interface {
	// PutJob stores or overwrites a job record.
	PutJob(ctx context.Context, job *core.IngestionJob) error

	// GetJob retrieves a job by its UUID.
	// Returns ErrNotFound if the job doesn't exist.
	GetJob(ctx context.Context, id string) (*core.IngestionJob, error)

	// ClaimJob transitions a pending job to running on behalf of a worker,
	// setting ClaimedAt, ClaimedBy and the liveness deadline. The transition
	// is atomic: if another worker claims the job concurrently, ErrJobClaimed
	// is returned and the job is left untouched.
	ClaimJob(ctx context.Context, id, worker string, deadline time.Time) (*core.IngestionJob, error)

	// ListJobsByStatus returns all jobs currently in the given status,
	// ordered by priority (highest first) then enqueue time (oldest first).
	ListJobsByStatus(ctx context.Context, status core.JobStatus) ([]*core.IngestionJob, error)

	// ListJobs returns all job records.
	ListJobs(ctx context.Context) ([]*core.IngestionJob, error)

	// DeleteJob removes a job record.
	// Returns ErrNotFound if the job doesn't exist.
	DeleteJob(ctx context.Context, id string) error

	// CountJobsByStatus returns the number of jobs in the given status.
	CountJobsByStatus(ctx context.Context, status core.JobStatus) (int, error)
}

// ReviewRepository manages the queue of marginal atom candidates awaiting a
// human decision.
type ReviewRepository interface {
	// PutReviewEntry stores or overwrites a review entry.
	PutReviewEntry(ctx context.Context, entry *core.ReviewEntry) error

	// GetReviewEntry retrieves a review entry by ID.
	// Returns ErrNotFound if the entry doesn't exist.
	GetReviewEntry(ctx context.Context, id core.ID) (*core.ReviewEntry, error)

	// ListPendingReviews returns entries still awaiting a decision, ordered
	// by insertion time (oldest first).
	ListPendingReviews(ctx context.Context) ([]*core.ReviewEntry, error)

	// DeleteReviewEntry removes a review entry.
	// Returns ErrNotFound if the entry doesn't exist.
	DeleteReviewEntry(ctx context.Context, id core.ID) error
}

// RelationRepository manages directed relations between atoms.
// Relations are append-only: they are superseded, never deleted.
type RelationRepository interface {
	// AddRelations stores one or more relations. Relation IDs are derived
	// from the (type, from, to) tuple, so re-linking the same pair is
	// idempotent. Sets InsertedAt if not already set.
	AddRelations(ctx context.Context, relations ...*core.Relation) ([]*core.Relation, error)

	// GetRelation retrieves a relation by ID.
	// Returns ErrNotFound if the relation doesn't exist.
	GetRelation(ctx context.Context, id core.ID) (*core.Relation, error)

	// GetRelationsFrom returns all relations originating at the given atom.
	GetRelationsFrom(ctx context.Context, atomID core.ID) ([]*core.Relation, error)

	// GetRelationsTo returns all relations pointing at the given atom.
	GetRelationsTo(ctx context.Context, atomID core.ID) ([]*core.Relation, error)

	// MarkSuperseded flags a relation as superseded and bumps UpdatedAt.
	// Returns ErrNotFound if the relation doesn't exist.
	MarkSuperseded(ctx context.Context, id core.ID) error
}

// FailedIngestionRepository tracks stage failures for retry and triage.
type FailedIngestionRepository interface {
	// RecordFailure upserts a failure record, preserving InsertedAt across
	// repeated failures of the same source and stage. The caller owns
	// RetryCount and NextRetryAt.
	RecordFailure(ctx context.Context, failure *core.FailedIngestion) (*core.FailedIngestion, error)

	// GetFailure retrieves a failure record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	GetFailure(ctx context.Context, id core.ID) (*core.FailedIngestion, error)

	// ListDueFailures returns unresolved failures whose NextRetryAt is at or
	// before now, ordered by NextRetryAt (oldest first).
	ListDueFailures(ctx context.Context, now time.Time) ([]*core.FailedIngestion, error)

	// ListUnresolvedFailures returns all unresolved failure records.
	ListUnresolvedFailures(ctx context.Context) ([]*core.FailedIngestion, error)

	// MarkResolved flags a failure record as resolved.
	// Returns ErrNotFound if the record doesn't exist.
	MarkResolved(ctx context.Context, id core.ID) error
}

// Store aggregates every repository backed by a single storage instance.
// Production code opens one Store and shares it across the pipeline, queue,
// coverage evaluator and searcher.
type Store interface {
	AtomRepository
	FingerprintRepository
	JobRepository
	ReviewRepository
	RelationRepository
	FailedIngestionRepository
}
