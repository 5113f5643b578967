package plancache

import "errors"

// Errors returned by cache backends. Check with errors.Is.
var (
	// ErrNotFound is returned when a key does not exist.
	ErrNotFound = errors.New("plancache: key not found")

	// ErrClosed is returned when operations are attempted after Close.
	ErrClosed = errors.New("plancache: cache is closed")
)
