package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthHandler answers liveness checks with a scrape of the metrics
// registry, so one endpoint serves both probes and Prometheus.
type HealthHandler struct {
	scrape http.Handler
}

// NewHealthHandler serves the metrics gathered from g.
func NewHealthHandler(g prometheus.Gatherer) *HealthHandler {
	return &HealthHandler{
		scrape: promhttp.HandlerFor(g, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError}),
	}
}

// HandleHealth handles GET and HEAD /healthz.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}
	h.scrape.ServeHTTP(w, r)
}
