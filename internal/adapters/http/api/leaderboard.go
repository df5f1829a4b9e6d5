package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
)

const (
	formatJSON = "json"
	formatText = "text"
)

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	TopN(ctx context.Context, n int) ([]Entry, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetLeaderboard handles GET /leaderboard?limit=N[&format=text] requests.
// limit defaults to the configured maximum.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"

	n, err := parseLimit(r, h.maxLimit)
	if err != nil {
		code := "bad_request"
		if errors.Is(err, ErrLimitExceeded) {
			code = "limit_exceeded"
		}
		writeError(w, http.StatusBadRequest, code, WrapKind(op, ErrBadRequest, err))
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = formatJSON
	}
	if format != formatJSON && format != formatText {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrUnsupportedFormat))
		return
	}

	entries, err := h.deps.TopN(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	if format == formatText {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(RenderTable(entries)))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// parseLimit reads ?limit, falling back to max when absent.
func parseLimit(r *http.Request, maxLimit int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return maxLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, ErrBadRequest
	}
	if n > maxLimit {
		return 0, ErrLimitExceeded
	}
	return n, nil
}
