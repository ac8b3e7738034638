package vectorstore

import "errors"

var (
	ErrRepositoryRequired = errors.New("chunk repository is required")
	ErrEmbedderRequired   = errors.New("embedder is required")

	// ErrInvalidScoreThreshold is returned when a score threshold falls outside [0, 1].
	ErrInvalidScoreThreshold = errors.New("score threshold must be between 0 and 1")

	// ErrUnsupportedOption is returned for vectorstores options the store cannot honor.
	ErrUnsupportedOption = errors.New("unsupported vector store option")

	// ErrEmbeddingMismatch is returned when an embedder returns the wrong number of vectors.
	ErrEmbeddingMismatch = errors.New("embedding count mismatch")
)
