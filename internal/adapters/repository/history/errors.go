package history

import "errors"

// Sentinel errors for the history store.
var (
	ErrPathRequired = errors.New("history: storage path is required")
	ErrNotFound     = errors.New("history: snapshot not found")
	ErrInvalidLimit = errors.New("history: limit must be greater than zero")
)
