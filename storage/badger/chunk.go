package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend     *Backend
	ownsBackend bool
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a ChunkRepository over an already open backend.
// Closing the repository leaves the backend open.
func NewChunkRepository(backend *Backend) (*ChunkRepository, error) {
	if backend == nil {
		return nil, errors.New("badger: backend is required")
	}
	return &ChunkRepository{backend: backend}, nil
}

// Open opens a backend at path and returns a repository that owns it.
func Open(path string, inMemory bool, logger *slog.Logger) (*ChunkRepository, error) {
	backend, err := OpenBackend(path, inMemory, logger)
	if err != nil {
		return nil, err
	}
	return &ChunkRepository{backend: backend, ownsBackend: true}, nil
}

// Close closes the backend if the repository opened it.
func (r *ChunkRepository) Close() error {
	if !r.ownsBackend || r.backend.IsClosed() {
		return nil
	}
	return r.backend.Close()
}

// FindSimilar delegates to the backend.
func (r *ChunkRepository) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	return r.backend.FindSimilar(ctx, vector, minSimilarity, limit)
}

// AddChunks adds one or more embedded chunks to storage.
func (r *ChunkRepository) AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error) {
	if len(chunks) == 0 {
		return chunks, nil
	}

	now := time.Now().UTC()
	err := r.backend.WithBatch(func(wb *badger.WriteBatch) error {
		for _, chunk := range chunks {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := core.ValidateChunk(chunk); err != nil {
				return err
			}
			if len(chunk.Vector) == 0 {
				return fmt.Errorf("%w: %s", storage.ErrMissingVector, chunk.Id)
			}
			chunk.InsertedAt = now

			if err := wb.Set(makeChunkKey(chunk.Id), storage.MarshalChunk(chunk)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.backend.logger.Debug("stored chunks", "count", len(chunks))
	return chunks, nil
}

// GetChunk retrieves a single chunk by ID.
func (r *ChunkRepository) GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error) {
	var result *core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeChunkKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			result, err = storage.UnmarshalChunk(val)
			return err
		})
	}, false)
	return result, err
}

// Count returns the number of stored chunks.
func (r *ChunkRepository) Count(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return ctx.Err()
	}, false)
	return count, err
}
