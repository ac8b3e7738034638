package ingestion

import "errors"

var (
	// ErrIngestionFailed wraps any read, split or store failure during ingestion.
	ErrIngestionFailed = errors.New("ingestion failed")

	// ErrLoaderRequired is returned when a loader is not provided.
	ErrLoaderRequired = errors.New("loader required")

	// ErrSplitterRequired is returned when a splitter is not provided.
	ErrSplitterRequired = errors.New("splitter required")

	// ErrStoreRequired is returned when a vector store is not provided.
	ErrStoreRequired = errors.New("vector store required")
)
