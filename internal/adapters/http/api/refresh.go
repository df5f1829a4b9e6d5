package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/standings/internal/domain/model"
)

// RefreshDependencies defines the interface for refresh and scheduler control.
type RefreshDependencies interface {
	Refresh(ctx context.Context) error
	StopScheduler(ctx context.Context) error
	StartScheduler(ctx context.Context) error
}

// RefreshHandler handles manual refresh and scheduler lifecycle requests.
type RefreshHandler struct {
	deps RefreshDependencies
}

// NewRefreshHandler creates a new refresh handler.
func NewRefreshHandler(deps RefreshDependencies) *RefreshHandler {
	return &RefreshHandler{deps: deps}
}

// HandleRefresh handles POST /refresh requests.
func (h *RefreshHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_refresh"
	err := h.deps.Refresh(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
	case errors.Is(err, model.ErrRunInProgress):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, model.ErrSchedulerStopped):
		writeError(w, http.StatusConflict, "scheduler_stopped", WrapKind(op, ErrConflict, err))
	case errors.Is(err, model.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

// HandleStopScheduler handles POST /scheduler/stop requests.
func (h *RefreshHandler) HandleStopScheduler(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, "api.stop_scheduler", h.deps.StopScheduler, "stopped")
}

// HandleStartScheduler handles POST /scheduler/start requests.
func (h *RefreshHandler) HandleStartScheduler(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, "api.start_scheduler", h.deps.StartScheduler, "started")
}

func (h *RefreshHandler) control(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context) error, status string) {
	err := fn(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ackResponse{Status: status})
	case errors.Is(err, model.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
