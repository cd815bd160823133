package badger

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/fixbase/fixbase/core"
	"github.com/fixbase/fixbase/storage"
)

// JobRepository implements storage.JobRepository for BadgerDB.
type JobRepository struct {
	backend *Backend
}

var _ storage.JobRepository = (*JobRepository)(nil)

// NewJobRepository creates a new JobRepository.
func NewJobRepository(backend *Backend) (*JobRepository, error) {
	return &JobRepository{
		backend: backend,
	}, nil
}

// PutJob stores or overwrites a job record.
func (r *JobRepository) PutJob(ctx context.Context, job *core.IngestionJob) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeJobKey(job.Id), storage.MarshalJob(job)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetJob retrieves a job by its UUID.
func (r *JobRepository) GetJob(ctx context.Context, id string) (*core.IngestionJob, error) {
	var result *core.IngestionJob
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readJob(tx, makeJobKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// ClaimJob transitions a pending job to running on behalf of a worker.
// The read-modify-write runs in one transaction, so a concurrent claim of the
// same job trips badger's conflict detection and surfaces as ErrJobClaimed.
func (r *JobRepository) ClaimJob(ctx context.Context, id, worker string, deadline time.Time) (*core.IngestionJob, error) {
	var claimed *core.IngestionJob
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeJobKey(id)
		job, err := readJob(tx, key)
		if err != nil {
			return err
		}
		if job == nil {
			return storage.ErrNotFound
		}
		if job.Status != core.JobPending {
			return storage.ErrJobClaimed
		}

		job.Status = core.JobRunning
		job.ClaimedAt = core.Now()
		job.ClaimedBy = worker
		job.Deadline = deadline

		if err := tx.Set(key, storage.MarshalJob(job)); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		claimed = job
		return nil
	}, true)

	if errors.Is(err, badger.ErrConflict) {
		return nil, storage.ErrJobClaimed
	}
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// ListJobsByStatus returns jobs in the given status, ordered by priority
// (highest first) then enqueue time (oldest first).
func (r *JobRepository) ListJobsByStatus(ctx context.Context, status core.JobStatus) ([]*core.IngestionJob, error) {
	jobs, err := r.ListJobs(ctx)
	if err != nil {
		return nil, err
	}

	filtered := jobs[:0]
	for _, job := range jobs {
		if job.Status == status {
			filtered = append(filtered, job)
		}
	}

	slices.SortFunc(filtered, func(a, b *core.IngestionJob) int {
		if a.Priority != b.Priority {
			return b.Priority - a.Priority
		}
		return a.EnqueuedAt.Compare(b.EnqueuedAt)
	})
	return filtered, nil
}

// ListJobs returns all job records.
func (r *JobRepository) ListJobs(ctx context.Context) ([]*core.IngestionJob, error) {
	var jobs []*core.IngestionJob
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(jobRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var job *core.IngestionJob
			err := iter.Item().Value(func(val []byte) error {
				var err error
				job, err = storage.UnmarshalJob(val)
				return err
			})
			if err != nil {
				return err
			}
			jobs = append(jobs, job)
		}
		return nil
	}, false)
	return jobs, err
}

// DeleteJob removes a job record.
func (r *JobRepository) DeleteJob(ctx context.Context, id string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeJobKey(id)
		job, err := readJob(tx, key)
		if err != nil {
			return err
		}
		if job == nil {
			return storage.ErrNotFound
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// CountJobsByStatus returns the number of jobs in the given status.
func (r *JobRepository) CountJobsByStatus(ctx context.Context, status core.JobStatus) (int, error) {
	jobs, err := r.ListJobsByStatus(ctx, status)
	if err != nil {
		return 0, err
	}
	return len(jobs), nil
}

// readJob reads a job from the transaction.
// Returns nil without error when the key does not exist.
func readJob(tx *badger.Txn, key []byte) (*core.IngestionJob, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var job *core.IngestionJob
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		job, unmarshalErr = storage.UnmarshalJob(val)
		return unmarshalErr
	})
	return job, err
}
