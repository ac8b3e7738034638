package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/docrag/reader"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
)

const previewLength = 200

// Config holds the per-run ingestion parameters.
type Config struct {
	// Resource is the file or directory to ingest.
	Resource string
}

// Loader reads the documents at a path.
type Loader interface {
	Load(ctx context.Context, path string) ([]schema.Document, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, path string) ([]schema.Document, error)

func (f LoaderFunc) Load(ctx context.Context, path string) ([]schema.Document, error) {
	return f(ctx, path)
}

// Splitter cuts documents into chunks.
type Splitter interface {
	SplitDocuments(docs []schema.Document) ([]schema.Document, error)
}

// Result summarizes an ingestion run.
type Result struct {
	Documents int           // Documents read from the resource
	Chunks    int           // Chunks produced by the splitter
	Stored    int           // Chunks accepted by the store
	Skipped   bool          // True when the resource was missing
	Elapsed   time.Duration // Wall time of the run
}

type options struct {
	logger   *slog.Logger
	progress io.Writer
}

// Option configures an ingestion run.
type Option func(*options) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// WithProgress reports each pipeline step to w.
func WithProgress(w io.Writer) Option {
	return func(o *options) error {
		o.progress = w
		return nil
	}
}

// Ingest extracts, splits and stores the resource named in cfg.
func Ingest(ctx context.Context, cfg Config, loader Loader, splitter Splitter, store vectorstores.VectorStore, opts ...Option) (*Result, error) {
	if loader == nil {
		return nil, ErrLoaderRequired
	}
	if splitter == nil {
		return nil, ErrSplitterRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}

	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	logger := o.logger.With("component", "ingestion", "resource", cfg.Resource)

	start := time.Now()
	result := &Result{}

	var tracker *ProgressTracker
	status := "failed"
	if o.progress != nil {
		tracker = NewProgressTracker(o.progress, 3)
		tracker.Start()
		defer func() { tracker.Finish(status) }()
	}

	logger.Info("starting document ingestion")

	docs, err := loader.Load(ctx, cfg.Resource)
	if errors.Is(err, reader.ErrResourceNotFound) {
		logger.Warn("resource does not exist, skipping ingestion")
		result.Skipped = true
		status = "skipped"
		result.Elapsed = time.Since(start)
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrIngestionFailed, cfg.Resource, err)
	}
	result.Documents = len(docs)
	logger.Info("read documents", "count", len(docs))
	if len(docs) > 0 {
		content := docs[0].PageContent
		logger.Info("first document", "length", len(content), "preview", preview(content, previewLength))
	}
	if tracker != nil {
		tracker.Step(fmt.Sprintf("extracted %d documents", len(docs)))
	}

	chunks, err := splitter.SplitDocuments(docs)
	if err != nil {
		return nil, fmt.Errorf("%w: splitting: %w", ErrIngestionFailed, err)
	}
	result.Chunks = len(chunks)
	logger.Info("split documents into chunks", "chunks", len(chunks))
	if tracker != nil {
		tracker.Step(fmt.Sprintf("split into %d chunks", len(chunks)))
	}

	if len(chunks) == 0 {
		logger.Warn("no chunks produced, nothing to store")
		status = "done"
		result.Elapsed = time.Since(start)
		return result, nil
	}

	ids, err := store.AddDocuments(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("%w: storing: %w", ErrIngestionFailed, err)
	}
	result.Stored = len(ids)
	if tracker != nil {
		tracker.Step(fmt.Sprintf("stored %d chunks", len(ids)))
	}
	status = "done"

	result.Elapsed = time.Since(start)
	logger.Info("document ingestion completed",
		"documents", result.Documents,
		"chunks", result.Chunks,
		"stored", result.Stored,
		"elapsed", result.Elapsed)
	return result, nil
}

// preview returns at most n runes of s.
func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
