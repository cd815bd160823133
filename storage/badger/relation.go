package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"github.com/fixbase/fixbase/core"
	"github.com/fixbase/fixbase/storage"
)

// RelationRepository implements storage.RelationRepository for BadgerDB.
type RelationRepository struct {
	backend *Backend
}

var _ storage.RelationRepository = (*RelationRepository)(nil)

// NewRelationRepository creates a new RelationRepository.
func NewRelationRepository(backend *Backend) (*RelationRepository, error) {
	return &RelationRepository{
		backend: backend,
	}, nil
}

// AddRelations stores one or more relations. IDs derive from the
// (type, from, to) tuple, so re-linking the same pair is idempotent and
// preserves the original InsertedAt.
func (r *RelationRepository) AddRelations(ctx context.Context, relations ...*core.Relation) ([]*core.Relation, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		now := core.Now()
		for _, rel := range relations {
			if rel.Id == 0 {
				rel.Id = core.IDFromContent(rel.Tuple())
			}

			key := makeRelationKey(rel.Id)
			old, err := readRelation(tx, key)
			if err != nil {
				return err
			}
			if old != nil {
				rel.InsertedAt = old.InsertedAt
				rel.Superseded = old.Superseded
			} else if rel.InsertedAt.IsZero() {
				rel.InsertedAt = now
			}
			rel.UpdatedAt = now

			if err := tx.Set(key, storage.MarshalRelation(rel)); err != nil {
				return err
			}

			// Endpoint indices for directed traversal
			fromKey := makeRelationEndpointKey(relationFromPrefix, rel.FromId, rel.Id)
			if err := tx.Set(fromKey, storage.MarshalID(rel.Id)); err != nil {
				return err
			}
			toKey := makeRelationEndpointKey(relationToPrefix, rel.ToId, rel.Id)
			if err := tx.Set(toKey, storage.MarshalID(rel.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return relations, err
}

// GetRelation retrieves a relation by ID.
func (r *RelationRepository) GetRelation(ctx context.Context, id core.ID) (*core.Relation, error) {
	var result *core.Relation
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readRelation(tx, makeRelationKey(id))
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

// GetRelationsFrom returns all relations originating at the given atom.
func (r *RelationRepository) GetRelationsFrom(ctx context.Context, atomID core.ID) ([]*core.Relation, error) {
	return r.relationsByEndpoint(relationFromPrefix, atomID)
}

// GetRelationsTo returns all relations pointing at the given atom.
func (r *RelationRepository) GetRelationsTo(ctx context.Context, atomID core.ID) ([]*core.Relation, error) {
	return r.relationsByEndpoint(relationToPrefix, atomID)
}

// MarkSuperseded flags a relation as superseded.
func (r *RelationRepository) MarkSuperseded(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeRelationKey(id)
		rel, err := readRelation(tx, key)
		if err != nil {
			return err
		}
		if rel == nil {
			return storage.ErrNotFound
		}

		rel.Superseded = true
		rel.UpdatedAt = core.Now()

		if err := tx.Set(key, storage.MarshalRelation(rel)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// relationsByEndpoint scans an endpoint index and loads the referenced relations.
func (r *RelationRepository) relationsByEndpoint(prefix string, atomID core.ID) ([]*core.Relation, error) {
	var relations []*core.Relation
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialRelationEndpointKey(prefix, atomID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = startKey
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			var relID core.ID
			err := iter.Item().Value(func(val []byte) error {
				var err error
				relID, err = storage.UnmarshalID(val)
				return err
			})
			if err != nil {
				return err
			}

			rel, err := readRelation(tx, makeRelationKey(relID))
			if err != nil {
				return err
			}
			if rel != nil {
				relations = append(relations, rel)
			}
		}
		return nil
	}, false)
	return relations, err
}

// readRelation reads a relation from the transaction.
// Returns nil without error when the key does not exist.
func readRelation(tx *badger.Txn, key []byte) (*core.Relation, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var rel *core.Relation
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		rel, unmarshalErr = storage.UnmarshalRelation(val)
		return unmarshalErr
	})
	return rel, err
}
