// Package api assembles the HTTP surface of the statement review backend.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-review/internal/api/handlers"
	"github.com/dvloznov/statement-review/internal/api/middleware"
	"github.com/dvloznov/statement-review/internal/jobs"
)

// Deps are the services the routes are served from.
type Deps struct {
	Extractor handlers.Extractor
	Runs      handlers.RunReader
	Ledger    handlers.Importer
	Publisher jobs.Publisher
	Jobs      jobs.JobStore

	// AuthToken enables bearer auth on /api when non-empty.
	AuthToken string
}

// NewRouter creates a chi router with all routes mounted. /health stays
// unauthenticated.
func NewRouter(deps Deps, log zerolog.Logger) chi.Router {
	extractions := handlers.NewExtractionsHandler(deps.Extractor, log)
	runs := handlers.NewRunsHandler(deps.Runs, log)
	ledger := handlers.NewLedgerHandler(deps.Ledger, deps.Publisher, log)
	jobsHandler := handlers.NewJobsHandler(deps.Jobs, log)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.BearerAuth(deps.AuthToken))

		r.Post("/extractions", extractions.CreateExtraction)

		r.Get("/documents/{docID}/runs", runs.ListRuns)
		r.Get("/runs/{runID}", runs.GetRun)

		r.Post("/ledger/import", ledger.ImportTransactions)
		r.Post("/ledger/refresh", ledger.RefreshIngestion)

		r.Get("/jobs", jobsHandler.ListJobs)
		r.Get("/jobs/{jobID}", jobsHandler.GetJob)
	})

	return r
}
