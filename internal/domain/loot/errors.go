package loot

import "errors"

// Sentinel kinds for loot resolution errors.
var (
	ErrEmptyContainer = errors.New("container has no outcomes")
	ErrNegativeWeight = errors.New("outcome weight is negative")
	ErrWeightCoverage = errors.New("outcome weights sum to under the draw range")
)
