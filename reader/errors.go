package reader

import "errors"

var (
	// ErrResourceNotFound indicates the path to read does not exist.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrUnsupportedFormat indicates a file extension no loader handles.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrMalformedDocument indicates a file whose structure could not be parsed.
	ErrMalformedDocument = errors.New("malformed document")
)
