// Package types contains common types used across the application
package types

import "time"

// Entry represents a ranked leaderboard entry
type Entry struct {
	Rank        int     `json:"rank"`
	Name        string  `json:"name"`
	Score       float64 `json:"score"`
	PointChange float64 `json:"point_change"`
}

// SnapshotView is the presenter contract served at /snapshot.
type SnapshotView struct {
	Entries     []Entry    `json:"entries"`
	InProgress  bool       `json:"in_progress"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
	Error       string     `json:"error,omitempty"`
	ErrorKind   string     `json:"error_kind,omitempty"`
	State       string     `json:"state"`
	StopReason  string     `json:"stop_reason,omitempty"`
}
