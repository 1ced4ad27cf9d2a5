package hub

import "errors"

// Rejection taxonomy for inbound events. Every rejection is local to one
// event dispatch, reported only to the originating connection, and never
// tears the connection down.
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("temporarily unavailable")
)
