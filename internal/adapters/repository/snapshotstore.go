package repository

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/okian/standings/internal/domain/model"
	"github.com/okian/standings/internal/domain/ranking"
	"github.com/okian/standings/internal/domain/types"
	"github.com/okian/standings/pkg/logger"
)

// published is an immutable view built once per Publish.
type published struct {
	snapshot model.Snapshot
	entries  []types.Entry
	byName   map[string]int
}

// SnapshotStore is a Store backed by an atomically swapped immutable view.
// Publish is expected from a single writer; reads are lock-free.
type SnapshotStore struct {
	cur atomic.Pointer[published]
	log logger.Logger
}

var _ Store = (*SnapshotStore)(nil)

// NewSnapshotStore creates an empty store.
func NewSnapshotStore(opts ...Option) *SnapshotStore {
	s := &SnapshotStore{log: logger.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Publish replaces the published snapshot. The entry slice is copied so later
// changes by the caller are not visible to readers.
func (s *SnapshotStore) Publish(ctx context.Context, snap model.Snapshot) {
	entries := make([]model.TrackedRecord, len(snap.Entries))
	copy(entries, snap.Entries)
	snap.Entries = entries

	p := &published{
		snapshot: snap,
		entries:  ranking.Entries(entries),
		byName:   make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		if _, dup := p.byName[e.Name]; !dup {
			p.byName[e.Name] = i
		}
	}
	s.cur.Store(p)
	s.log.Debug(ctx, "snapshot published", logger.Int("entries", len(entries)))
}

// Current returns the published snapshot.
func (s *SnapshotStore) Current(_ context.Context) (model.Snapshot, bool) {
	p := s.cur.Load()
	if p == nil {
		return model.Snapshot{}, false
	}
	return p.snapshot, true
}

// Rank returns the entry for name.
func (s *SnapshotStore) Rank(_ context.Context, name string) (types.Entry, error) {
	p := s.cur.Load()
	if p == nil {
		return types.Entry{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	i, ok := p.byName[name]
	if !ok {
		return types.Entry{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return p.entries[i], nil
}

// TopN returns up to n entries in rank order.
func (s *SnapshotStore) TopN(_ context.Context, n int) ([]types.Entry, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}
	p := s.cur.Load()
	if p == nil {
		return []types.Entry{}, nil
	}
	if n > len(p.entries) {
		n = len(p.entries)
	}
	out := make([]types.Entry, n)
	copy(out, p.entries[:n])
	return out, nil
}

// Count returns the number of published entries.
func (s *SnapshotStore) Count(_ context.Context) int {
	p := s.cur.Load()
	if p == nil {
		return 0
	}
	return len(p.entries)
}
