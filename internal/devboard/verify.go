package devboard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/okian/standings/internal/domain/types"
)

// ErrInconsistent is returned when a published snapshot breaks an ordering or
// uniqueness rule.
var ErrInconsistent = errors.New("devboard: snapshot is inconsistent")

// Report is the outcome of verifying a running service.
type Report struct {
	Snapshot types.SnapshotView
	Problems []string
}

// Verify reads /snapshot and /leaderboard from the standings service at
// baseURL and checks that entries are ranked 1..n, sorted by score with names
// unique, and that the leaderboard agrees with the snapshot.
func Verify(ctx context.Context, baseURL string, timeout time.Duration) (Report, error) {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout)

	var rep Report
	resp, err := client.R().SetContext(ctx).SetResult(&rep.Snapshot).Get("/snapshot")
	if err != nil {
		return rep, fmt.Errorf("devboard: get snapshot: %w", err)
	}
	if resp.IsError() {
		return rep, fmt.Errorf("devboard: get snapshot: status %d", resp.StatusCode())
	}

	rep.Problems = CheckEntries(rep.Snapshot.Entries)

	if n := len(rep.Snapshot.Entries); n > 0 {
		var top []types.Entry
		resp, err := client.R().
			SetContext(ctx).
			SetQueryParam("limit", strconv.Itoa(n)).
			SetResult(&top).
			Get("/leaderboard")
		switch {
		case err != nil:
			return rep, fmt.Errorf("devboard: get leaderboard: %w", err)
		case resp.IsError():
			rep.Problems = append(rep.Problems, fmt.Sprintf("leaderboard returned status %d", resp.StatusCode()))
		case len(top) == 0:
			rep.Problems = append(rep.Problems, "leaderboard is empty while the snapshot is not")
		case top[0] != rep.Snapshot.Entries[0] && !rep.Snapshot.InProgress:
			// a refresh may land between the two reads, so only a settled service is compared
			rep.Problems = append(rep.Problems, fmt.Sprintf("leaderboard leader %q differs from snapshot leader %q", top[0].Name, rep.Snapshot.Entries[0].Name))
		}
	}

	if len(rep.Problems) > 0 {
		return rep, ErrInconsistent
	}
	return rep, nil
}

// CheckEntries returns every ordering or uniqueness problem in entries.
func CheckEntries(entries []types.Entry) []string {
	var problems []string
	seen := make(map[string]int, len(entries))
	for i, e := range entries {
		if e.Rank != i+1 {
			problems = append(problems, fmt.Sprintf("entry %d has rank %d", i, e.Rank))
		}
		if i > 0 && e.Score > entries[i-1].Score {
			problems = append(problems, fmt.Sprintf("entry %d (%s, %v) outranks entry %d (%s, %v)",
				i, e.Name, e.Score, i-1, entries[i-1].Name, entries[i-1].Score))
		}
		if prev, ok := seen[e.Name]; ok {
			problems = append(problems, fmt.Sprintf("name %q appears at %d and %d", e.Name, prev, i))
			continue
		}
		seen[e.Name] = i
	}
	return problems
}
