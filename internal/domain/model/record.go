// Package model contains domain models passed between layers.
package model

import "time"

// Record is one leaderboard row as extracted from the source page.
// Name is the identity key used to correlate rows across snapshots.
type Record struct {
	Name  string
	Score float64
}

// TrackedRecord is a Record annotated with its score change since the
// previous successful snapshot. PointChange is 0 for names never seen before.
type TrackedRecord struct {
	Record
	PointChange float64
}

// Snapshot is one completed, ranked view of the leaderboard. Entries are
// ordered by score descending; rank is position + 1 and is never stored.
type Snapshot struct {
	Entries []TrackedRecord
	TakenAt time.Time
}

// Len returns the number of entries in the snapshot.
func (s Snapshot) Len() int { return len(s.Entries) }

// Reference maps identity keys to the last-seen Record of the previous
// successful run. A Reference is immutable once built; the scheduler replaces
// it wholesale after each success.
type Reference struct {
	byName map[string]Record
}

// NewReference builds a Reference from deduplicated records. If a name
// repeats, the first occurrence wins.
func NewReference(records []Record) *Reference {
	m := make(map[string]Record, len(records))
	for _, r := range records {
		if _, ok := m[r.Name]; ok {
			continue
		}
		m[r.Name] = r
	}
	return &Reference{byName: m}
}

// Lookup returns the previous record for name. A nil Reference holds nothing.
func (r *Reference) Lookup(name string) (Record, bool) {
	if r == nil {
		return Record{}, false
	}
	rec, ok := r.byName[name]
	return rec, ok
}

// Len returns the number of names held.
func (r *Reference) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byName)
}

// TriggerSource identifies what asked for a refresh run.
type TriggerSource string

const (
	TriggerTick   TriggerSource = "tick"
	TriggerManual TriggerSource = "manual"
)

// Trigger asks the worker to execute one pipeline run.
type Trigger struct {
	Source TriggerSource
	At     time.Time
}
