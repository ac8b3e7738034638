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

package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docrag/ai"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/storage"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
)

// MetadataID is the document metadata key that carries the chunk ID in search results.
const MetadataID = "id"

const (
	DefaultBatchSize      = 32
	DefaultTopK           = 4
	DefaultScoreThreshold = 0.0
)

// Store is a langchaingo vector store backed by a ChunkRepository.
// Documents are embedded on the way in and queries are embedded on the way out.
type Store struct {
	repository     storage.ChunkRepository
	embedder       ai.Embedder
	pool           *ants.Pool
	batchSize      int
	topK           int
	scoreThreshold float32
	logger         *slog.Logger
}

var _ vectorstores.VectorStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store) error

// WithPoolSize sets how many embedding batches run concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(s *Store) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if s.pool != nil {
			s.pool.Release()
		}
		s.pool = pool
		return nil
	}
}

// WithBatchSize sets how many texts are sent to the embedder per call.
func WithBatchSize(size int) Option {
	return func(s *Store) error {
		if size < 1 {
			return fmt.Errorf("batch size must be at least 1, got %d", size)
		}
		s.batchSize = size
		return nil
	}
}

// WithTopK sets the number of results returned when a search asks for zero or fewer.
func WithTopK(k int) Option {
	return func(s *Store) error {
		if k < 1 {
			return fmt.Errorf("top-k must be at least 1, got %d", k)
		}
		s.topK = k
		return nil
	}
}

// WithScoreThreshold sets the default minimum similarity for search results.
func WithScoreThreshold(threshold float32) Option {
	return func(s *Store) error {
		if threshold < 0 || threshold > 1 {
			return ErrInvalidScoreThreshold
		}
		s.scoreThreshold = threshold
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// New creates a Store. Call Close to release its worker pool.
func New(repository storage.ChunkRepository, embedder ai.Embedder, opts ...Option) (*Store, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := max(runtime.NumCPU()/2, 1)
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	s := &Store{
		repository:     repository,
		embedder:       embedder,
		pool:           pool,
		batchSize:      DefaultBatchSize,
		topK:           DefaultTopK,
		scoreThreshold: DefaultScoreThreshold,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(s); optErr != nil {
			s.Close()
			return nil, optErr
		}
	}
	s.logger = s.logger.With("component", "vectorstore")

	return s, nil
}

// Close releases the embedding pool. The repository is left open.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Release()
	}
}

// Count returns the number of chunks in the underlying repository.
func (s *Store) Count(ctx context.Context) (int, error) {
	return s.repository.Count(ctx)
}

// AddDocuments embeds the documents and stores them as chunks.
// Returns the IDs of the stored chunks in input order.
// Documents with blank content are skipped.
func (s *Store) AddDocuments(ctx context.Context, docs []schema.Document, options ...vectorstores.Option) ([]string, error) {
	opts := s.options(options...)
	if opts.Filters != nil {
		return nil, fmt.Errorf("%w: filters", ErrUnsupportedOption)
	}

	texts := make([]string, 0, len(docs))
	chunks := make([]*core.Chunk, 0, len(docs))
	for _, doc := range docs {
		if strings.TrimSpace(doc.PageContent) == "" {
			continue
		}
		if opts.Deduplicater != nil && opts.Deduplicater(ctx, doc) {
			continue
		}
		texts = append(texts, doc.PageContent)
		chunks = append(chunks, core.NewChunk(doc.PageContent, stringMetadata(doc.Metadata)))
	}
	if len(chunks) == 0 {
		return []string{}, nil
	}

	vectors, err := s.embedBatches(ctx, s.embedFunc(opts), texts)
	if err != nil {
		return nil, err
	}
	for i, chunk := range chunks {
		chunk.Vector = core.NormalizeVector(vectors[i])
	}

	added, err := s.repository.AddChunks(ctx, chunks...)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(added))
	for i, chunk := range added {
		ids[i] = chunk.Id.String()
	}
	s.logger.Debug("added documents", "count", len(ids))
	return ids, nil
}

// SimilaritySearch returns the documents closest to query, best match first.
// A numDocuments of zero or less means the store's top-k.
func (s *Store) SimilaritySearch(ctx context.Context, query string, numDocuments int, options ...vectorstores.Option) ([]schema.Document, error) {
	opts := s.options(options...)
	if opts.Filters != nil {
		return nil, fmt.Errorf("%w: filters", ErrUnsupportedOption)
	}
	if opts.ScoreThreshold < 0 || opts.ScoreThreshold > 1 {
		return nil, ErrInvalidScoreThreshold
	}
	if numDocuments <= 0 {
		numDocuments = s.topK
	}

	var vector []float32
	var err error
	if opts.Embedder != nil {
		vector, err = opts.Embedder.EmbedQuery(ctx, query)
	} else {
		vector, err = s.embedder.EmbedText(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := s.repository.FindSimilar(ctx, core.NormalizeVector(vector), opts.ScoreThreshold, numDocuments)
	if err != nil {
		return nil, err
	}

	docs := make([]schema.Document, len(results))
	for i, result := range results {
		docs[i] = toDocument(result)
	}
	s.logger.Debug("similarity search", "requested", numDocuments, "found", len(docs))
	return docs, nil
}

// Retriever adapts the store to the schema.Retriever contract.
func (s *Store) Retriever(numDocuments int, options ...vectorstores.Option) vectorstores.Retriever {
	return vectorstores.ToRetriever(s, numDocuments, options...)
}

func (s *Store) options(options ...vectorstores.Option) vectorstores.Options {
	opts := vectorstores.Options{ScoreThreshold: s.scoreThreshold}
	for _, opt := range options {
		opt(&opts)
	}
	return opts
}

type embedFunc func(ctx context.Context, texts []string) ([][]float32, error)

func (s *Store) embedFunc(opts vectorstores.Options) embedFunc {
	if opts.Embedder != nil {
		return opts.Embedder.EmbedDocuments
	}
	return s.embedder.EmbedTexts
}

// embedBatches embeds texts in batches on the worker pool.
// The result is in input order. The first failing batch aborts the rest.
func (s *Store) embedBatches(ctx context.Context, embed embedFunc, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	vectors := make([][]float32, len(texts))
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel(err)
		})
	}

	for start := 0; start < len(texts); start += s.batchSize {
		end := min(start+s.batchSize, len(texts))
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			batch, err := embed(ctx, texts[start:end])
			if err != nil {
				fail(fmt.Errorf("embedding batch %d-%d: %w", start, end, err))
				return
			}
			if len(batch) != end-start {
				fail(fmt.Errorf("%w: expected %d, received %d", ErrEmbeddingMismatch, end-start, len(batch)))
				return
			}
			copy(vectors[start:end], batch)
		})
		if err != nil {
			wg.Done()
			fail(err)
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func stringMetadata(metadata map[string]any) map[string]string {
	if len(metadata) == 0 {
		return nil
	}
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out
}

func toDocument(result *core.SearchResult) schema.Document {
	metadata := make(map[string]any, len(result.Chunk.Metadata)+1)
	for k, v := range result.Chunk.Metadata {
		metadata[k] = v
	}
	metadata[MetadataID] = result.Chunk.Id.String()
	return schema.Document{
		PageContent: result.Chunk.Content,
		Metadata:    metadata,
		Score:       result.Score,
	}
}
