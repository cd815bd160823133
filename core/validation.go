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

package core

import "fmt"

// ValidateAtom validates an Atom according to domain rules.
//
// Validation rules:
//   - Kind must be a recognized AtomKind
//   - Title and Summary must not be empty
//   - Source must carry a URL
//   - QualityScore must lie in [0, 100]
//   - SafetyLevel and Difficulty, when set, must be recognized values
//
// NOT validated (populated by pipeline stages):
//   - Vector (can be empty until the embedding stage runs)
//   - RelatedIds / PrerequisiteIds (populated by the relation linker)
//   - Body (specification atoms may legitimately be summary-only)
func ValidateAtom(atom *Atom) error {
	if atom == nil {
		return fmt.Errorf("%w: atom is nil", ErrInvalidAtom)
	}

	if ParseAtomKind(atom.Kind.String()) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidAtom, ErrInvalidKind)
	}

	if atom.Title == "" {
		return fmt.Errorf("%w: %w", ErrInvalidAtom, ErrEmptyTitle)
	}

	if atom.Summary == "" {
		return fmt.Errorf("%w: %w", ErrInvalidAtom, ErrEmptySummary)
	}

	if atom.Source.URL == "" {
		return fmt.Errorf("%w: %w", ErrInvalidAtom, ErrEmptySource)
	}

	if atom.QualityScore < 0 || atom.QualityScore > 100 {
		return fmt.Errorf("%w: %w", ErrInvalidAtom, ErrQualityScoreRange)
	}

	if atom.SafetyLevel != 0 {
		if atom.SafetyLevel < SafetyInfo || atom.SafetyLevel > SafetyDanger {
			return fmt.Errorf("%w: %w", ErrInvalidAtom, ErrInvalidSafetyLevel)
		}
	}

	if atom.Difficulty != 0 {
		if atom.Difficulty < DifficultyBasic || atom.Difficulty > DifficultyAdvanced {
			return fmt.Errorf("%w: %w", ErrInvalidAtom, ErrInvalidDifficulty)
		}
	}

	return nil
}

// ValidateRelation validates a Relation according to domain rules.
//
// Validation rules:
//   - FromId and ToId must be set and differ
//   - Type must be a recognized RelationType
func ValidateRelation(relation *Relation) error {
	if relation == nil {
		return fmt.Errorf("%w: relation is nil", ErrInvalidRelation)
	}

	if relation.FromId == 0 || relation.ToId == 0 {
		return fmt.Errorf("%w: endpoint ids must be set", ErrInvalidRelation)
	}

	if relation.FromId == relation.ToId {
		return fmt.Errorf("%w: %w", ErrInvalidRelation, ErrSelfRelation)
	}

	if relation.Type < RelPrerequisiteOf || relation.Type > RelSupersedes {
		return fmt.Errorf("%w: %w", ErrInvalidRelation, ErrInvalidRelationType)
	}

	return nil
}

// ValidateFingerprint validates a Fingerprint according to domain rules.
func ValidateFingerprint(fp *Fingerprint) error {
	if fp == nil {
		return fmt.Errorf("fingerprint is nil: %w", ErrEmptyHash)
	}
	if fp.Hash == "" {
		return ErrEmptyHash
	}
	if fp.Source.URL == "" {
		return ErrEmptySource
	}
	return nil
}

// ValidateJob validates an IngestionJob according to domain rules.
//
// Validation rules:
//   - Id must be set
//   - Source must carry a URL
//   - Status must be a recognized JobStatus
func ValidateJob(job *IngestionJob) error {
	if job == nil {
		return fmt.Errorf("%w: job is nil", ErrInvalidJob)
	}

	if job.Id == "" {
		return fmt.Errorf("%w: job id must be set", ErrInvalidJob)
	}

	if job.Source.URL == "" {
		return fmt.Errorf("%w: %w", ErrInvalidJob, ErrEmptySource)
	}

	if job.Status < JobPending || job.Status > JobFailed {
		return fmt.Errorf("%w: unknown status %d", ErrInvalidJob, job.Status)
	}

	return nil
}
