package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/standings/internal/domain/model"
	"github.com/okian/standings/internal/domain/ranking"
)

// HistoryDependencies defines the interface for snapshot history reads.
type HistoryDependencies interface {
	History(ctx context.Context, limit int) ([]model.HistorySummary, error)
	HistorySnapshot(ctx context.Context, id int64) (model.Snapshot, error)
}

// HistoryHandler handles snapshot history requests.
type HistoryHandler struct {
	deps     HistoryDependencies
	maxLimit int
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(deps HistoryDependencies, maxLimit int) *HistoryHandler {
	return &HistoryHandler{deps: deps, maxLimit: maxLimit}
}

type historySummary struct {
	ID          int64     `json:"id"`
	TakenAt     time.Time `json:"taken_at"`
	EntryCount  int       `json:"entry_count"`
	Leader      string    `json:"leader,omitempty"`
	LeaderScore float64   `json:"leader_score"`
}

type historySnapshot struct {
	ID      int64     `json:"id"`
	TakenAt time.Time `json:"taken_at"`
	Entries []Entry   `json:"entries"`
}

// HandleGetHistory handles GET /history?limit=N requests.
func (h *HistoryHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_history"
	n, err := parseLimit(r, h.maxLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	list, err := h.deps.History(r.Context(), n)
	if err != nil {
		h.fail(w, op, err)
		return
	}
	out := make([]historySummary, 0, len(list))
	for _, s := range list {
		out = append(out, historySummary{
			ID:          s.ID,
			TakenAt:     s.TakenAt,
			EntryCount:  s.EntryCount,
			Leader:      s.Leader,
			LeaderScore: s.LeaderScore,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetHistorySnapshot handles GET /history/{id} requests.
func (h *HistoryHandler) HandleGetHistorySnapshot(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_history_snapshot"
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	snap, err := h.deps.HistorySnapshot(r.Context(), id)
	if err != nil {
		h.fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, historySnapshot{
		ID:      id,
		TakenAt: snap.TakenAt,
		Entries: ranking.Entries(snap.Entries),
	})
}

func (h *HistoryHandler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, model.ErrHistoryDisabled):
		writeError(w, http.StatusNotFound, "history_disabled", WrapKind(op, ErrUnavailable, err))
	case isNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
