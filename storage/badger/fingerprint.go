package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/fixbase/fixbase/core"
	"github.com/fixbase/fixbase/storage"
)

// FingerprintRepository implements storage.FingerprintRepository for BadgerDB.
type FingerprintRepository struct {
	backend *Backend
}

var _ storage.FingerprintRepository = (*FingerprintRepository)(nil)

// NewFingerprintRepository creates a new FingerprintRepository.
func NewFingerprintRepository(backend *Backend) (*FingerprintRepository, error) {
	return &FingerprintRepository{
		backend: backend,
	}, nil
}

// CheckAndRecord atomically checks whether the hash is already known,
// recording it if not. Returns true when the content is a duplicate.
//
// Badger's SSI conflict detection guarantees that when two workers race on
// the same hash, exactly one commit succeeds; the loser retries, finds the
// hash present, and reports a duplicate.
func (r *FingerprintRepository) CheckAndRecord(ctx context.Context, fp *core.Fingerprint) (bool, error) {
	key := makeFingerprintKey(fp.Hash)

	for {
		var seen bool
		err := r.backend.WithTx(func(tx *badger.Txn) error {
			_, err := tx.Get(key)
			if err == nil {
				seen = true
				return nil
			}
			if err != badger.ErrKeyNotFound {
				return err
			}

			if fp.FirstSeenAt.IsZero() {
				fp.FirstSeenAt = core.Now()
			}
			if err := tx.Set(key, storage.MarshalFingerprint(fp)); err != nil {
				return err
			}
			return tx.Commit()
		}, true)

		if errors.Is(err, badger.ErrConflict) {
			// Another worker recorded the same hash first; re-check
			continue
		}
		if err != nil {
			return false, err
		}
		return seen, nil
	}
}

// GetFingerprint retrieves a fingerprint by content hash.
func (r *FingerprintRepository) GetFingerprint(ctx context.Context, hash string) (*core.Fingerprint, error) {
	var result *core.Fingerprint
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeFingerprintKey(hash))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			result, unmarshalErr = storage.UnmarshalFingerprint(val)
			return unmarshalErr
		})
	}, false)
	return result, err
}
