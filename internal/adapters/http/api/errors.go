package api

import "errors"

// Sentinel errors the handler layer reports.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrInvalidBody = errors.New("invalid request body")
)
