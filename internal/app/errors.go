package app

import "errors"

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound                  = errors.New("not found")
	ErrInvalidView               = errors.New("invalid view")
	ErrInvalidColumnDeletePolicy = errors.New("invalid column delete policy")
)
