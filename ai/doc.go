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

// Package ai provides abstractions for the AI services fixbase orchestrates.
//
// This package defines interfaces for text embeddings and atom generation.
// The pipeline and search layers depend only on these abstractions, never on
// a concrete model client.
//
// # Design
//
// Three interfaces:
//
//   - Embedder: generates vector embeddings from text
//   - AtomGenerator: turns extracted chunks into knowledge atom candidates
//   - AIProvider: aggregates both for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: production implementation for OpenAI-compatible APIs
//   - ai/mock: test doubles for unit testing without external services
//
// Production constructors (openai.NewProvider and friends) return interface
// types to enforce abstraction; mock constructors return concrete types so
// tests can inject behavior and assert call counts.
package ai
