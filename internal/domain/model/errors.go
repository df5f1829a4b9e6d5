package model

import "errors"

// Sentinel errors shared by the service and its adapters.
var (
	ErrSchedulerStopped = errors.New("scheduler stopped")
	ErrRunInProgress    = errors.New("refresh already pending")
	ErrHistoryDisabled  = errors.New("history disabled")
	ErrNotStarted       = errors.New("service not started")
)
