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

import "errors"

// Domain validation errors
var (
	// ErrInvalidAtom indicates an Atom failed validation.
	ErrInvalidAtom = errors.New("invalid atom")

	// ErrInvalidRelation indicates a Relation failed validation.
	ErrInvalidRelation = errors.New("invalid relation")

	// ErrInvalidJob indicates an IngestionJob failed validation.
	ErrInvalidJob = errors.New("invalid ingestion job")

	// ErrInvalidKind indicates an unrecognized AtomKind value.
	ErrInvalidKind = errors.New("invalid atom kind")

	// ErrInvalidRelationType indicates an unrecognized RelationType value.
	ErrInvalidRelationType = errors.New("invalid relation type")

	// ErrInvalidSafetyLevel indicates an unrecognized SafetyLevel value.
	ErrInvalidSafetyLevel = errors.New("invalid safety level")

	// ErrInvalidDifficulty indicates an unrecognized Difficulty value.
	ErrInvalidDifficulty = errors.New("invalid difficulty")

	// ErrEmptyTitle indicates the Title field is empty.
	ErrEmptyTitle = errors.New("title cannot be empty")

	// ErrEmptySummary indicates the Summary field is empty.
	ErrEmptySummary = errors.New("summary cannot be empty")

	// ErrEmptySource indicates the source reference has no URL.
	ErrEmptySource = errors.New("source reference cannot be empty")

	// ErrEmptyHash indicates a fingerprint has no content hash.
	ErrEmptyHash = errors.New("content hash cannot be empty")

	// ErrSelfRelation indicates a relation pointing from an atom to itself.
	ErrSelfRelation = errors.New("relation cannot point to itself")

	// ErrQualityScoreRange indicates a quality score outside 0-100.
	ErrQualityScoreRange = errors.New("quality score must be between 0 and 100")
)
