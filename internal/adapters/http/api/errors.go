package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest        = errors.New("bad request")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrBackpressure      = errors.New("backpressure")
	ErrUnavailable       = errors.New("unavailable")
	ErrLimitExceeded     = errors.New("limit exceeded")
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// OpError ties an error to the handler operation that produced it. Kind is
// one of the sentinels above and is matched by errors.Is.
type OpError struct {
	Op   string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	switch {
	case e.Kind != nil && e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Kind != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *OpError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind returns an error of kind raised by op.
func NewKind(op string, kind error) error {
	return &OpError{Op: op, Kind: kind}
}

// WrapKind returns err wrapped as kind raised by op.
func WrapKind(op string, kind, err error) error {
	return &OpError{Op: op, Kind: kind, Err: err}
}

// Wrap annotates err with op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Err: err}
}
