package eventstore

import "errors"

// Sentinel kinds for event store errors.
var (
	ErrUnknownDriver = errors.New("unknown event store driver")
	ErrClosed        = errors.New("event store closed")
)
