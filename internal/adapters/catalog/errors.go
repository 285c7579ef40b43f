package catalog

import "errors"

var (
	// ErrContainerNotFound is returned for an unknown or inactive container.
	ErrContainerNotFound = errors.New("container not found")

	// ErrDuplicateContainer is returned when adding an id twice.
	ErrDuplicateContainer = errors.New("container already registered")
)
