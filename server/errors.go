package server

import "errors"

// ErrResponderRequired is returned when a responder is not provided.
var ErrResponderRequired = errors.New("responder required")
