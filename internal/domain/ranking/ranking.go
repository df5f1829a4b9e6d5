// Package ranking orders tracked records for display.
package ranking

import (
	"sort"

	"github.com/okian/standings/internal/domain/model"
	"github.com/okian/standings/internal/domain/types"
)

// Rank returns a copy of tracked sorted by score descending. Exact ties keep
// their input order.
func Rank(tracked []model.TrackedRecord) []model.TrackedRecord {
	out := make([]model.TrackedRecord, len(tracked))
	copy(out, tracked)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// Entries converts a ranked snapshot into display entries, deriving rank from
// position.
func Entries(entries []model.TrackedRecord) []types.Entry {
	out := make([]types.Entry, len(entries))
	for i, e := range entries {
		out[i] = types.Entry{
			Rank:        i + 1,
			Name:        e.Name,
			Score:       e.Score,
			PointChange: e.PointChange,
		}
	}
	return out
}
