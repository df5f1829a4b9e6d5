package source

import "errors"

// Sentinel errors for the fetcher.
var (
	ErrInvalidURL   = errors.New("source: invalid url")
	ErrStatus       = errors.New("source: unexpected status")
	ErrBodyTooLarge = errors.New("source: body too large")
	ErrEmptyBody    = errors.New("source: empty body")
)
