package storage

import (
	"context"

	"github.com/poiesic/docrag/core"
)

// ChunkRepository persists embedded chunks and answers nearest-neighbour queries.
// Implementations must be thread-safe and support concurrent access.
type ChunkRepository interface {
	// AddChunks stores one or more embedded chunks.
	// Chunks are keyed by their content-derived ID, so adding a chunk whose
	// text is already stored replaces the earlier entry instead of duplicating it.
	// Sets InsertedAt on each chunk. Every chunk must carry a vector.
	AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error)

	// GetChunk retrieves a single chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error)

	// FindSimilar finds chunks similar to the given unit vector.
	// Returns chunks with similarity >= minSimilarity, up to limit results.
	// Results are ordered by similarity score (highest first).
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
