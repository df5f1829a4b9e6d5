package metrics

import (
	"errors"
)

// Sentinel kinds for metrics errors.
var (
	ErrUnknownOutcome = errors.New("metrics: unknown refresh outcome")
)
