// Package delta computes per-name score changes against the previous snapshot.
package delta

import "github.com/okian/standings/internal/domain/model"

// Calculate annotates each current record with current.Score minus the
// previous score for the same name. Names absent from ref get 0. The output
// keeps the input order.
func Calculate(current []model.Record, ref *model.Reference) []model.TrackedRecord {
	out := make([]model.TrackedRecord, len(current))
	for i, r := range current {
		out[i] = model.TrackedRecord{Record: r}
		if prev, ok := ref.Lookup(r.Name); ok {
			out[i].PointChange = r.Score - prev.Score
		}
	}
	return out
}
