// Package repository holds the published leaderboard snapshot.
package repository

import (
	"context"

	"github.com/okian/standings/internal/domain/model"
	"github.com/okian/standings/internal/domain/types"
)

// Store provides read/write access to the published snapshot.
type Store interface {
	// Publish replaces the published snapshot. Readers never observe a
	// partially written snapshot.
	Publish(ctx context.Context, s model.Snapshot)

	// Current returns the published snapshot; ok is false before the first publish.
	Current(ctx context.Context) (s model.Snapshot, ok bool)

	// Rank returns the entry for name. Returns ErrNotFound if name is unknown.
	Rank(ctx context.Context, name string) (types.Entry, error)

	// TopN returns the first n entries in rank order.
	TopN(ctx context.Context, n int) ([]types.Entry, error)

	// Count returns the number of entries in the published snapshot.
	Count(ctx context.Context) int
}
