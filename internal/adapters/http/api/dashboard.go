package api

import (
	"bytes"
	"html/template"
	"net/http"
	"time"
)

// dashboardHandler serves the embedded browser dashboard.
type dashboardHandler struct {
	page []byte
	err  error
}

type dashboardData struct {
	RefreshIntervalMs int64
}

func newDashboardHandler(interval time.Duration) *dashboardHandler {
	h := &dashboardHandler{}
	tmpl, err := template.ParseFS(dashboardFS, "dashboard.html")
	if err != nil {
		h.err = err
		return h
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, dashboardData{RefreshIntervalMs: interval.Milliseconds()}); err != nil {
		h.err = err
		return h
	}
	h.page = buf.Bytes()
	return h
}

// HandleDashboard handles GET /dashboard requests. The page polls /snapshot
// and drives /refresh and the scheduler endpoints.
func (h *dashboardHandler) HandleDashboard(w http.ResponseWriter, _ *http.Request) {
	if h.err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", h.err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(h.page)
}
