package api

import (
	"context"
	"net/http"

	"github.com/okian/standings/internal/domain/model"
	"github.com/okian/standings/internal/domain/ranking"
	"github.com/okian/standings/internal/domain/types"
)

// SnapshotDependencies defines the interface for the presenter view.
type SnapshotDependencies interface {
	State(ctx context.Context) model.State
}

// SnapshotHandler handles snapshot requests.
type SnapshotHandler struct {
	deps SnapshotDependencies
}

// NewSnapshotHandler creates a new snapshot handler.
func NewSnapshotHandler(deps SnapshotDependencies) *SnapshotHandler {
	return &SnapshotHandler{deps: deps}
}

// HandleGetSnapshot handles GET /snapshot requests. It returns the published
// snapshot with the in-progress flag, last update time and current error.
func (h *SnapshotHandler) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, View(h.deps.State(r.Context())))
}

// View converts service state into the presenter contract.
func View(st model.State) types.SnapshotView {
	return types.SnapshotView{
		Entries:     ranking.Entries(st.Snapshot.Entries),
		InProgress:  st.InProgress,
		LastUpdated: st.LastUpdated,
		Error:       st.Error,
		ErrorKind:   string(st.ErrorKind),
		State:       st.Scheduler.String(),
		StopReason:  st.StopReason,
	}
}
