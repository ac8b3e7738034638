package splitter

import "errors"

var (
	// ErrEncoderRequired is returned when a token encoder is not provided.
	ErrEncoderRequired = errors.New("token encoder required")

	// ErrInvalidOptions is returned when splitter options are out of range.
	ErrInvalidOptions = errors.New("invalid splitter options")

	// ErrEncodingUnavailable is returned when a tokenizer encoding cannot be loaded.
	ErrEncodingUnavailable = errors.New("token encoding unavailable")
)
