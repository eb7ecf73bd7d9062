package store

import "errors"

var (
	// ErrNotFound indicates no file exists at the requested path.
	ErrNotFound = errors.New("stored file not found")
	// ErrConflict indicates the revision token was missing or did not match
	// the store's current revision of the file.
	ErrConflict = errors.New("revision conflict")
)
