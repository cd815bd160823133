package badger

import (
	"context"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/fixbase/fixbase/core"
	"github.com/fixbase/fixbase/storage"
)

// ReviewRepository implements storage.ReviewRepository for BadgerDB.
type ReviewRepository struct {
	backend *Backend
}

var _ storage.ReviewRepository = (*ReviewRepository)(nil)

// NewReviewRepository creates a new ReviewRepository.
func NewReviewRepository(backend *Backend) (*ReviewRepository, error) {
	return &ReviewRepository{
		backend: backend,
	}, nil
}

// PutReviewEntry stores or overwrites a review entry.
func (r *ReviewRepository) PutReviewEntry(ctx context.Context, entry *core.ReviewEntry) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeReviewKey(entry.Id), storage.MarshalReviewEntry(entry)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetReviewEntry retrieves a review entry by ID.
func (r *ReviewRepository) GetReviewEntry(ctx context.Context, id core.ID) (*core.ReviewEntry, error) {
	var result *core.ReviewEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeReviewKey(id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			result, unmarshalErr = storage.UnmarshalReviewEntry(val)
			return unmarshalErr
		})
	}, false)
	return result, err
}

// ListPendingReviews returns undecided entries, oldest first.
func (r *ReviewRepository) ListPendingReviews(ctx context.Context) ([]*core.ReviewEntry, error) {
	var entries []*core.ReviewEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(reviewRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var entry *core.ReviewEntry
			err := iter.Item().Value(func(val []byte) error {
				var err error
				entry, err = storage.UnmarshalReviewEntry(val)
				return err
			})
			if err != nil {
				return err
			}
			if entry.Decision == core.ReviewPending {
				entries = append(entries, entry)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(entries, func(a, b *core.ReviewEntry) int {
		return a.InsertedAt.Compare(b.InsertedAt)
	})
	return entries, nil
}

// DeleteReviewEntry removes a review entry.
func (r *ReviewRepository) DeleteReviewEntry(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeReviewKey(id)
		if _, err := tx.Get(key); err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
