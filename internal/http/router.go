// Package httpapi is the thin HTTP layer. Handlers delegate to the
// pipeline and stores without embedding business logic so transport
// concerns remain isolated.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires all public endpoints.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/ingest", h.handleIngest)
		r.Get("/audit", h.handleAuditList)
		r.Get("/export/fhir", h.handleExportFHIR)
		r.Post("/export/share", h.handleExportShare)
		r.Delete("/records/purged", h.handleHardDeletePurged)
	})
	return r
}
