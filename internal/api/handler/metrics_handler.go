package handler

import (
	"net/http"

	"github.com/jobpulse/notify/internal/registry"
)

// MetricsHandler serves a human-readable JSON snapshot of the connection
// registry. Raw Prometheus metrics (counters, histograms) are available
// at /metrics via promhttp.Handler and are separate from this endpoint.
type MetricsHandler struct {
	reg registry.Registry
}

func NewMetricsHandler(reg registry.Registry) *MetricsHandler {
	return &MetricsHandler{reg: reg}
}

// GetMetrics handles GET /api/v1/metrics
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	users, conns := h.reg.Stats()
	respondJSON(w, http.StatusOK, map[string]any{
		"push": map[string]int{
			"registered_users": users,
			"live_connections": conns,
		},
	})
}
