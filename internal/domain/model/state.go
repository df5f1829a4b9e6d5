package model

import "time"

// FailureKind classifies a failed pipeline run.
type FailureKind string

const (
	// FailureTransport means the leaderboard page could not be fetched.
	FailureTransport FailureKind = "transport"
	// FailureExtraction means the extraction service returned empty or malformed output.
	FailureExtraction FailureKind = "extraction"
	// FailureQuota means the extraction service quota is exhausted.
	FailureQuota FailureKind = "quota"
	// FailureCredential means the extraction service credential is missing or invalid.
	FailureCredential FailureKind = "credential"
)

// Terminal reports whether the failure stops automatic refresh.
func (k FailureKind) Terminal() bool {
	return k == FailureQuota || k == FailureCredential
}

// SchedulerState is the refresh scheduler lifecycle state.
type SchedulerState int

const (
	SchedulerIdle SchedulerState = iota
	SchedulerFetching
	SchedulerStopped
)

func (s SchedulerState) String() string {
	switch s {
	case SchedulerIdle:
		return "idle"
	case SchedulerFetching:
		return "fetching"
	case SchedulerStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// State is the read-only view handed to presenters.
type State struct {
	Snapshot    Snapshot
	InProgress  bool
	LastUpdated *time.Time
	// Error is the user-facing message of the last failed run, empty after a success.
	Error      string
	ErrorKind  FailureKind
	Scheduler  SchedulerState
	StopReason string
}

// HistorySummary describes one persisted snapshot.
type HistorySummary struct {
	ID          int64
	TakenAt     time.Time
	EntryCount  int
	Leader      string
	LeaderScore float64
}

// Stage names the pipeline step that failed.
type Stage string

const (
	StageFetch   Stage = "fetch"
	StageExtract Stage = "extract"
)
