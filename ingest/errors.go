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

package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreRequired is returned when a store is not provided.
	ErrStoreRequired = errors.New("store required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrEmptyPayload is returned when a source payload has no content.
	ErrEmptyPayload = errors.New("empty payload")

	// ErrNoExtractableText is returned when extraction yields no prose.
	ErrNoExtractableText = errors.New("no extractable text")
)

// Pipeline stage names, used in FailedIngestion records and job timings.
const (
	StageFingerprint = "fingerprint"
	StageExtract     = "extract"
	StageChunk       = "chunk"
	StageGenerate    = "generate"
	StageQuality     = "quality"
	StageEmbed       = "embed"
	StageStore       = "store"
	StageRelate      = "relate"
)

// AcquisitionError reports an unreadable or corrupt payload.
// Retryable at the sweep's discretion.
type AcquisitionError struct {
	Err error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquisition failed: %v", e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// GenerationError reports an external generation failure for one chunk.
type GenerationError struct {
	Chunk int
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed for chunk %d: %v", e.Chunk, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// EmbeddingError reports an external embedding failure.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// StorageError reports a persistence failure.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failed: %v", e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
