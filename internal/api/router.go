// Package api assembles the HTTP routes of the settlement service.
package api

import (
	"net/http"

	"github.com/dvloznov/settlement-tracker/internal/api/handlers"
	"github.com/dvloznov/settlement-tracker/internal/api/middleware"
	"github.com/dvloznov/settlement-tracker/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers groups the endpoint handlers served by the router. A nil field
// leaves its routes unregistered.
type Handlers struct {
	Settlements *handlers.SettlementsHandler
	Sales       *handlers.SalesHandler
	Imports     *handlers.ImportsHandler
	Jobs        *handlers.JobsHandler
}

// NewRouter builds the chi router with the standard middleware chain.
func NewRouter(h Handlers, m *metrics.Metrics, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Metrics(m))
	r.Use(middleware.CORS)

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	})

	r.Get("/health", handlers.Health)
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		if h.Settlements != nil {
			r.Post("/settlements/parse", h.Settlements.Parse)
			r.Post("/settlements/ingest", h.Settlements.EnqueueIngestion)
		}
		if h.Sales != nil {
			r.Get("/sales", h.Sales.ListSales)
		}
		if h.Imports != nil {
			r.Get("/imports", h.Imports.ListImports)
		}
		if h.Jobs != nil {
			r.Get("/jobs", h.Jobs.ListJobs)
			r.Get("/jobs/{id}", h.Jobs.GetJob)
		}
	})

	return r
}
