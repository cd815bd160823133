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

package storage

import (
	"github.com/fixbase/fixbase/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	return id, err
}

// MarshalAtom serializes an Atom to bytes.
func MarshalAtom(atom *core.Atom) []byte {
	buf := make([]byte, core.AtomMUS.Size(*atom))
	core.AtomMUS.Marshal(*atom, buf)
	return buf
}

// UnmarshalAtom deserializes an Atom from bytes.
func UnmarshalAtom(data []byte) (*core.Atom, error) {
	atom, _, err := core.AtomMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &atom, nil
}

// MarshalFingerprint serializes a Fingerprint to bytes.
func MarshalFingerprint(fp *core.Fingerprint) []byte {
	buf := make([]byte, core.FingerprintMUS.Size(*fp))
	core.FingerprintMUS.Marshal(*fp, buf)
	return buf
}

// UnmarshalFingerprint deserializes a Fingerprint from bytes.
func UnmarshalFingerprint(data []byte) (*core.Fingerprint, error) {
	fp, _, err := core.FingerprintMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &fp, nil
}

// MarshalJob serializes an IngestionJob to bytes.
func MarshalJob(job *core.IngestionJob) []byte {
	buf := make([]byte, core.IngestionJobMUS.Size(*job))
	core.IngestionJobMUS.Marshal(*job, buf)
	return buf
}

// UnmarshalJob deserializes an IngestionJob from bytes.
func UnmarshalJob(data []byte) (*core.IngestionJob, error) {
	job, _, err := core.IngestionJobMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// MarshalReviewEntry serializes a ReviewEntry to bytes.
func MarshalReviewEntry(entry *core.ReviewEntry) []byte {
	buf := make([]byte, core.ReviewEntryMUS.Size(*entry))
	core.ReviewEntryMUS.Marshal(*entry, buf)
	return buf
}

// UnmarshalReviewEntry deserializes a ReviewEntry from bytes.
func UnmarshalReviewEntry(data []byte) (*core.ReviewEntry, error) {
	entry, _, err := core.ReviewEntryMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// MarshalRelation serializes a Relation to bytes.
func MarshalRelation(rel *core.Relation) []byte {
	buf := make([]byte, core.RelationMUS.Size(*rel))
	core.RelationMUS.Marshal(*rel, buf)
	return buf
}

// UnmarshalRelation deserializes a Relation from bytes.
func UnmarshalRelation(data []byte) (*core.Relation, error) {
	rel, _, err := core.RelationMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

// MarshalFailedIngestion serializes a FailedIngestion to bytes.
func MarshalFailedIngestion(failure *core.FailedIngestion) []byte {
	buf := make([]byte, core.FailedIngestionMUS.Size(*failure))
	core.FailedIngestionMUS.Marshal(*failure, buf)
	return buf
}

// UnmarshalFailedIngestion deserializes a FailedIngestion from bytes.
func UnmarshalFailedIngestion(data []byte) (*core.FailedIngestion, error) {
	failure, _, err := core.FailedIngestionMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &failure, nil
}
