// Package dedupe collapses records that share an identity key.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/standings/internal/domain/model"
)

// Deduper records seen identity keys.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	Size() int64
}

// inMemoryDeduper implements Deduper with a plain map. One deduper lives for
// one pipeline run, so the set never needs eviction.
type inMemoryDeduper struct {
	mu       sync.Mutex
	seen     map[string]struct{}
	expected int
	size     atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{expected: 64}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{}, d.expected)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		return true
	}
	d.seen[key] = struct{}{}
	d.size.Add(1)
	return false
}

// Size returns the current number of keys in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

// Records returns one record per name, keeping the first occurrence and the
// input order. Empty input yields an empty, non-nil slice.
func Records(ctx context.Context, records []model.Record) []model.Record {
	d := NewInMemoryDeduper(WithExpectedSize(len(records)))
	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		if d.SeenAndRecord(ctx, r.Name) {
			continue
		}
		out = append(out, r)
	}
	return out
}
