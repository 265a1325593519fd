package httpapi

import (
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonathanlei/messagely/internal/metrics"
)

var registerOnce sync.Once

func (s *Server) mountMetrics(r chi.Router) {
	// Guarded: tests build several routers against the same global registry.
	registerOnce.Do(metrics.MustRegister)
	r.Method("GET", "/metrics", promhttp.Handler())
}
