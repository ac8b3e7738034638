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

// Package storage provides the chunk persistence layer for docrag.
//
// This package defines the ChunkRepository interface, which decouples the
// vector store from the database that holds embedded chunks. Two backends
// implement it:
//
//   - badger: BadgerDB key/value store with brute-force similarity search
//   - chromem: chromem-go embedded vector database
//
// # Usage
//
// Open a repository on disk:
//
//	repo, err := badger.Open("/path/to/db", false, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repo.Close()
//
// Use in tests with in-memory storage:
//
//	repo, err := badger.NewMemoryRepository()
//
// # Identity
//
// Chunk IDs are derived from chunk content, so storing the same text twice
// replaces the first entry rather than adding a second one.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
