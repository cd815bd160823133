package badger

import (
	"context"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/fixbase/fixbase/core"
	"github.com/fixbase/fixbase/storage"
)

// AtomRepository implements storage.AtomRepository for BadgerDB.
type AtomRepository struct {
	backend *Backend
}

var _ storage.AtomRepository = (*AtomRepository)(nil)

// NewAtomRepository creates a new AtomRepository.
func NewAtomRepository(backend *Backend) (*AtomRepository, error) {
	return &AtomRepository{
		backend: backend,
	}, nil
}

// Close releases resources. AtomRepository has no resources to release.
func (r *AtomRepository) Close() error {
	return nil
}

// FindSimilar delegates to the backend.
func (r *AtomRepository) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	return r.backend.FindSimilar(ctx, vector, minSimilarity, limit)
}

// WithTransaction delegates to the backend.
func (r *AtomRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// UpsertAtoms stores one or more atoms, overwriting existing entries with the
// same ID. Content-derived IDs mean re-ingestion rewrites the same rows.
func (r *AtomRepository) UpsertAtoms(ctx context.Context, atoms ...*core.Atom) ([]*core.Atom, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		now := core.Now()
		for _, atom := range atoms {
			key := makeAtomKey(atom.Id)

			// Read old version to preserve InsertedAt and clean stale index entries
			old, err := readAtom(tx, key)
			if err != nil {
				return err
			}

			if old != nil {
				atom.InsertedAt = old.InsertedAt
				if !keywordsEqual(old.Keywords, atom.Keywords) {
					if err := deleteKeywordIndex(tx, old); err != nil {
						return err
					}
				}
			} else if atom.InsertedAt.IsZero() {
				atom.InsertedAt = now
			}
			atom.UpdatedAt = now

			value := storage.MarshalAtom(atom)
			if err := tx.Set(key, value); err != nil {
				return err
			}

			if err := updateKeywordIndex(tx, atom); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return atoms, err
}

// GetAtom retrieves a single atom by ID.
func (r *AtomRepository) GetAtom(ctx context.Context, id core.ID) (*core.Atom, error) {
	var result *core.Atom
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readAtom(tx, makeAtomKey(id))
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

// GetAtoms retrieves multiple atoms by their IDs.
// Missing atoms are skipped without error.
func (r *AtomRepository) GetAtoms(ctx context.Context, ids ...core.ID) ([]*core.Atom, error) {
	var result []*core.Atom
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			atom, err := readAtom(tx, makeAtomKey(id))
			if err != nil {
				return err
			}
			if atom != nil {
				result = append(result, atom)
			}
		}
		return nil
	}, false)
	return result, err
}

// UpdateRelatedIds replaces the RelatedIds of an existing atom.
// This is the only in-place mutation allowed on a stored atom.
func (r *AtomRepository) UpdateRelatedIds(ctx context.Context, id core.ID, relatedIds []core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeAtomKey(id)
		atom, err := readAtom(tx, key)
		if err != nil {
			return err
		}
		if atom == nil {
			return storage.ErrNotFound
		}

		atom.RelatedIds = relatedIds
		atom.UpdatedAt = core.Now()

		if err := tx.Set(key, storage.MarshalAtom(atom)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// SearchKeywords finds atoms whose indexed keywords match the given terms.
// Score is the fraction of query terms an atom matched.
func (r *AtomRepository) SearchKeywords(ctx context.Context, terms []string, limit int) ([]*core.SearchResult, error) {
	if len(terms) == 0 || limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	matches := make(map[core.ID]int)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, term := range terms {
			term = strings.ToLower(strings.TrimSpace(term))
			if term == "" {
				continue
			}

			startKey := makePartialKeywordKey(term)
			opts := badger.DefaultIteratorOptions
			opts.Prefix = startKey
			iter := tx.NewIterator(opts)

			for iter.Seek(startKey); iter.Valid(); iter.Next() {
				var atomID core.ID
				err := iter.Item().Value(func(val []byte) error {
					var err error
					atomID, err = storage.UnmarshalID(val)
					return err
				})
				if err != nil {
					iter.Close()
					return err
				}
				matches[atomID]++
			}
			iter.Close()
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		return nil, nil
	}

	ids := make([]core.ID, 0, len(matches))
	for id := range matches {
		ids = append(ids, id)
	}
	atoms, err := r.GetAtoms(ctx, ids...)
	if err != nil {
		return nil, err
	}

	results := make([]*core.SearchResult, 0, len(atoms))
	for _, atom := range atoms {
		results = append(results, &core.SearchResult{
			Atom:  atom,
			Score: float32(matches[atom.Id]) / float32(len(terms)),
		})
	}

	// Sort by score descending, ties broken by ID for determinism
	slices.SortFunc(results, func(a, b *core.SearchResult) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		if a.Atom.Id < b.Atom.Id {
			return -1
		}
		if a.Atom.Id > b.Atom.Id {
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// CountAtoms returns the total number of stored atoms.
func (r *AtomRepository) CountAtoms(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(atomRecordPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// Helper methods

// readAtom reads an atom from the transaction.
// Returns nil without error when the key does not exist.
func readAtom(tx *badger.Txn, key []byte) (*core.Atom, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var atom *core.Atom
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		atom, unmarshalErr = storage.UnmarshalAtom(val)
		return unmarshalErr
	})
	return atom, err
}

// updateKeywordIndex adds keyword index entries for an atom.
func updateKeywordIndex(tx *badger.Txn, atom *core.Atom) error {
	for _, kw := range atom.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		key := makeKeywordKey(kw, atom.Id)
		if err := tx.Set(key, storage.MarshalID(atom.Id)); err != nil {
			return err
		}
	}
	return nil
}

// deleteKeywordIndex removes keyword index entries for an atom.
func deleteKeywordIndex(tx *badger.Txn, atom *core.Atom) error {
	for _, kw := range atom.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if err := tx.Delete(makeKeywordKey(kw, atom.Id)); err != nil {
			return err
		}
	}
	return nil
}

// keywordsEqual compares two keyword slices for equality.
func keywordsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
