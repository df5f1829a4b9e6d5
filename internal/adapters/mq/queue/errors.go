package queue

import "errors"

// Sentinel errors for the trigger queue.
var (
	ErrFull   = errors.New("queue: full")
	ErrClosed = errors.New("queue: closed")
)
