package chromem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync/atomic"
	"time"

	"github.com/philippgille/chromem-go"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/storage"
)

const (
	// DefaultCollection is the collection chunks are stored in.
	DefaultCollection = "docrag"

	// insertedAtKey holds InsertedAt in chromem metadata; it is stripped on read.
	insertedAtKey = "_inserted_at"
)

// errEmbeddingDisabled is returned if chromem is ever asked to embed text itself.
var errEmbeddingDisabled = errors.New("chromem: chunks must be embedded before they are stored")

// Repository implements storage.ChunkRepository on a chromem-go collection.
type Repository struct {
	db          *chromem.DB
	collection  *chromem.Collection
	concurrency int
	logger      *slog.Logger
	closed      atomic.Bool
}

var _ storage.ChunkRepository = (*Repository)(nil)

type Option func(*Repository) error

// WithLogger sets the logger for the repository.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) error {
		r.logger = logger
		return nil
	}
}

// WithConcurrency sets how many documents chromem adds in parallel.
func WithConcurrency(n int) Option {
	return func(r *Repository) error {
		if n < 1 {
			return fmt.Errorf("chromem: concurrency must be at least 1, got %d", n)
		}
		r.concurrency = n
		return nil
	}
}

// Open opens a chromem database. An empty path keeps everything in memory;
// otherwise documents are persisted as gob files under path.
func Open(path string, collection string, opts ...Option) (*Repository, error) {
	r := &Repository{
		concurrency: 1,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "chromem")

	if collection == "" {
		collection = DefaultCollection
	}

	if path == "" {
		r.db = chromem.NewDB()
	} else {
		db, err := chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, err
		}
		r.db = db
	}

	col, err := r.db.GetOrCreateCollection(collection, map[string]string{"hnsw:space": "cosine"}, refuseEmbedding)
	if err != nil {
		return nil, err
	}
	r.collection = col
	r.logger.Debug("opened collection", "name", collection, "path", path, "count", col.Count())
	return r, nil
}

func refuseEmbedding(context.Context, string) ([]float32, error) {
	return nil, errEmbeddingDisabled
}

// Close marks the repository closed. chromem holds no resources that need releasing.
func (r *Repository) Close() error {
	r.closed.Store(true)
	return nil
}

// AddChunks adds one or more embedded chunks to the collection.
func (r *Repository) AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error) {
	if r.closed.Load() {
		return nil, storage.ErrStorageClosed
	}
	if len(chunks) == 0 {
		return chunks, nil
	}

	now := time.Now().UTC()
	docs := make([]chromem.Document, 0, len(chunks))
	for _, chunk := range chunks {
		if err := core.ValidateChunk(chunk); err != nil {
			return nil, err
		}
		if len(chunk.Vector) == 0 {
			return nil, fmt.Errorf("%w: %s", storage.ErrMissingVector, chunk.Id)
		}
		chunk.InsertedAt = now

		metadata := maps.Clone(chunk.Metadata)
		if metadata == nil {
			metadata = make(map[string]string, 1)
		}
		metadata[insertedAtKey] = now.Format(time.RFC3339Nano)

		docs = append(docs, chromem.Document{
			ID:        chunk.Id.String(),
			Metadata:  metadata,
			Embedding: chunk.Vector,
			Content:   chunk.Content,
		})
	}

	if err := r.collection.AddDocuments(ctx, docs, r.concurrency); err != nil {
		return nil, err
	}
	r.logger.Debug("stored chunks", "count", len(chunks))
	return chunks, nil
}

// GetChunk retrieves a single chunk by ID.
func (r *Repository) GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error) {
	if r.closed.Load() {
		return nil, storage.ErrStorageClosed
	}
	doc, err := r.collection.GetByID(ctx, id.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	return toChunk(doc.ID, doc.Content, doc.Metadata, doc.Embedding)
}

// FindSimilar finds chunks similar to the given vector.
// The limit is clamped to the collection size.
func (r *Repository) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	if r.closed.Load() {
		return nil, storage.ErrStorageClosed
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", storage.ErrInvalidQuery, limit)
	}

	count := r.collection.Count()
	if count == 0 {
		return nil, nil
	}

	found, err := r.collection.QueryEmbedding(ctx, vector, min(limit, count), nil, nil)
	if err != nil {
		return nil, err
	}

	results := make([]*core.SearchResult, 0, len(found))
	for _, res := range found {
		if res.Similarity < minSimilarity {
			continue
		}
		chunk, err := toChunk(res.ID, res.Content, res.Metadata, res.Embedding)
		if err != nil {
			return nil, err
		}
		results = append(results, &core.SearchResult{Chunk: chunk, Score: res.Similarity})
	}
	return results, nil
}

// Count returns the number of stored chunks.
func (r *Repository) Count(ctx context.Context) (int, error) {
	if r.closed.Load() {
		return 0, storage.ErrStorageClosed
	}
	return r.collection.Count(), nil
}

func toChunk(id, content string, metadata map[string]string, embedding []float32) (*core.Chunk, error) {
	parsed, err := core.ParseID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: bad document id %q: %w", storage.ErrSerializationFailed, id, err)
	}

	chunk := &core.Chunk{
		Id:       parsed,
		Content:  content,
		Metadata: maps.Clone(metadata),
		Vector:   append([]float32(nil), embedding...),
	}
	if ts, ok := chunk.Metadata[insertedAtKey]; ok {
		if at, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			chunk.InsertedAt = at
		}
		delete(chunk.Metadata, insertedAtKey)
	}
	return chunk, nil
}
