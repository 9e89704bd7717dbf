// Copyright 2025 Poiesic Systems
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

// Package storage provides the storage abstraction layer for stackalchemy.
//
// This package defines repository interfaces that decouple storage implementation
// from the indexing pipeline and the procedure layer. Two backends implement them:
//
//   - storage/badger: embedded key/value store, the default for the CLI and tests
//   - storage/postgres: relational store with a pgvector summary column
//
// # Architecture
//
// The storage layer follows the Repository pattern:
//
//   - UserRepository: users known to the authentication provider
//   - ProjectRepository: projects, access links, soft delete and purge
//   - EmbeddingRepository: per-file summaries and their vectors, similarity search
//   - CommitRepository: summarized commits with duplicate-hash tolerance
//   - QuestionRepository: saved question/answer pairs
//   - Store: aggregates the above and owns the backend lifecycle
//
// # Usage
//
//	store, err := badger.OpenStore("/path/to/db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
// Use in tests with in-memory storage:
//
//	store, err := badger.NewMemoryStore()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
