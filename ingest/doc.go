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

// Package ingest turns raw source payloads into stored knowledge atoms.
//
// The pipeline runs a fixed stage sequence per job: fingerprint dedup,
// content extraction, chunking, atom generation, quality gating, embedding,
// storage and relation linking. Chunks within a job process in parallel with
// per-chunk failure isolation; stage failures become FailedIngestion records
// that a background Sweeper retries with capped exponential backoff.
//
// Identical content short-circuits at the fingerprint stage: the job
// completes with zero atoms and no generator or embedder calls.
package ingest
