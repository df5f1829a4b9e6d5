package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/okian/standings/internal/adapters/repository"
	"github.com/okian/standings/internal/adapters/repository/history"
)

// RankDependencies defines the interface for rank operations.
type RankDependencies interface {
	Rank(ctx context.Context, name string) (Entry, error)
}

// RankHandler handles rank requests.
type RankHandler struct {
	deps RankDependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps RankDependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

// HandleGetRank handles GET /rank/{name} requests.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rank"
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	entry, err := h.deps.Rank(r.Context(), name)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// isNotFound translates store not-found errors to 404.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound) || errors.Is(err, history.ErrNotFound)
}
