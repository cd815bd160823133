package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/fixbase/fixbase/core"
	"github.com/fixbase/fixbase/storage"
)

// FailedIngestionRepository implements storage.FailedIngestionRepository for BadgerDB.
type FailedIngestionRepository struct {
	backend *Backend
}

var _ storage.FailedIngestionRepository = (*FailedIngestionRepository)(nil)

// NewFailedIngestionRepository creates a new FailedIngestionRepository.
func NewFailedIngestionRepository(backend *Backend) (*FailedIngestionRepository, error) {
	return &FailedIngestionRepository{
		backend: backend,
	}, nil
}

// RecordFailure upserts a failure record, preserving InsertedAt across
// repeated failures of the same source and stage. RetryCount and NextRetryAt
// are the caller's responsibility.
func (r *FailedIngestionRepository) RecordFailure(ctx context.Context, failure *core.FailedIngestion) (*core.FailedIngestion, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if failure.Id == 0 {
			failure.Id = core.FailedIngestionID(failure.Source, failure.Stage)
		}

		now := core.Now()
		key := makeFailureKey(failure.Id)
		old, err := readFailure(tx, key)
		if err != nil {
			return err
		}
		if old != nil {
			failure.InsertedAt = old.InsertedAt
		} else if failure.InsertedAt.IsZero() {
			failure.InsertedAt = now
		}
		failure.UpdatedAt = now

		if err := tx.Set(key, storage.MarshalFailedIngestion(failure)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	return failure, err
}

// GetFailure retrieves a failure record by ID.
func (r *FailedIngestionRepository) GetFailure(ctx context.Context, id core.ID) (*core.FailedIngestion, error) {
	var result *core.FailedIngestion
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readFailure(tx, makeFailureKey(id))
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

// ListDueFailures returns unresolved failures due for retry, oldest first.
func (r *FailedIngestionRepository) ListDueFailures(ctx context.Context, now time.Time) ([]*core.FailedIngestion, error) {
	failures, err := r.ListUnresolvedFailures(ctx)
	if err != nil {
		return nil, err
	}

	due := failures[:0]
	for _, f := range failures {
		if !f.NextRetryAt.After(now) {
			due = append(due, f)
		}
	}

	slices.SortFunc(due, func(a, b *core.FailedIngestion) int {
		return a.NextRetryAt.Compare(b.NextRetryAt)
	})
	return due, nil
}

// ListUnresolvedFailures returns all unresolved failure records.
func (r *FailedIngestionRepository) ListUnresolvedFailures(ctx context.Context) ([]*core.FailedIngestion, error) {
	var failures []*core.FailedIngestion
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(failureRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var failure *core.FailedIngestion
			err := iter.Item().Value(func(val []byte) error {
				var err error
				failure, err = storage.UnmarshalFailedIngestion(val)
				return err
			})
			if err != nil {
				return err
			}
			if !failure.Resolved {
				failures = append(failures, failure)
			}
		}
		return nil
	}, false)
	return failures, err
}

// MarkResolved flags a failure record as resolved.
func (r *FailedIngestionRepository) MarkResolved(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeFailureKey(id)
		failure, err := readFailure(tx, key)
		if err != nil {
			return err
		}
		if failure == nil {
			return storage.ErrNotFound
		}

		failure.Resolved = true
		failure.UpdatedAt = core.Now()

		if err := tx.Set(key, storage.MarshalFailedIngestion(failure)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// readFailure reads a failure record from the transaction.
// Returns nil without error when the key does not exist.
func readFailure(tx *badger.Txn, key []byte) (*core.FailedIngestion, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var failure *core.FailedIngestion
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		failure, unmarshalErr = storage.UnmarshalFailedIngestion(val)
		return unmarshalErr
	})
	return failure, err
}
