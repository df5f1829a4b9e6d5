package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/standings/pkg/metrics"
)

// HealthHandler serves the service metrics registry.
type HealthHandler struct {
	metrics http.Handler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

// HandleHealth handles GET /healthz and GET /metrics requests with the
// Prometheus exposition of the custom registry.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}
