package query

import "errors"

var (
	// ErrQueryFailed wraps any retrieval, templating or generation failure.
	ErrQueryFailed = errors.New("query failed")

	// ErrRetrieverRequired is returned when a retriever is not provided.
	ErrRetrieverRequired = errors.New("retriever required")

	// ErrModelRequired is returned when a chat model is not provided.
	ErrModelRequired = errors.New("chat model required")

	// ErrEmptyResponse is returned when the model answers with no choices.
	ErrEmptyResponse = errors.New("empty response from model")
)
