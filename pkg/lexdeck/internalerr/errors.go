package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicate      = errors.New("duplicate entry")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrNoInput        = errors.New("no input files")
	ErrMalformedInput = errors.New("malformed input")
)
