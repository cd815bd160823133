// Copyright 2026 Fixbase Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import (
	"github.com/fixbase/fixbase/storage"
)

// Store aggregates every repository behind a single BadgerDB instance.
type Store struct {
	backend *Backend
	*AtomRepository
	*FingerprintRepository
	*JobRepository
	*ReviewRepository
	*RelationRepository
	*FailedIngestionRepository
}

var _ storage.Store = (*Store)(nil)

// NewStore opens a BadgerDB-backed store at the given path.
//
// Returns storage.Store interface to enforce abstraction.
func NewStore(path string) (storage.Store, error) {
	return newStore(path, false)
}

// NewMemoryStore creates an in-memory store for testing.
func NewMemoryStore() (storage.Store, error) {
	return newStore("", true)
}

func newStore(path string, inMemory bool) (*Store, error) {
	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, err
	}

	atoms, err := NewAtomRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	fingerprints, err := NewFingerprintRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	jobs, err := NewJobRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	reviews, err := NewReviewRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	relations, err := NewRelationRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	failures, err := NewFailedIngestionRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &Store{
		backend:                   backend,
		AtomRepository:            atoms,
		FingerprintRepository:     fingerprints,
		JobRepository:             jobs,
		ReviewRepository:          reviews,
		RelationRepository:        relations,
		FailedIngestionRepository: failures,
	}, nil
}

// Close closes the underlying BadgerDB database.
func (s *Store) Close() error {
	return s.backend.Close()
}
