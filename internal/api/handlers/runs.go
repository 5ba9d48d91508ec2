package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-review/internal/api/middleware"
	"github.com/dvloznov/statement-review/internal/domain"
)

// RunsHandler serves extraction history.
type RunsHandler struct {
	runs RunReader
	log  zerolog.Logger
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(runs RunReader, log zerolog.Logger) *RunsHandler {
	return &RunsHandler{
		runs: runs,
		log:  log,
	}
}

// ListRuns handles GET /api/documents/{docID}/runs
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	docID := pathParam(r, "docID")
	if docID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	list, err := h.runs.ListRuns(r.Context(), docID)
	if err != nil {
		h.log.Error().Err(err).Str("doc_id", docID).Msg("Failed to list runs")
		writeServiceError(w, err, "Failed to list runs")
		return
	}
	if list == nil {
		list = []domain.RunSummary{}
	}

	middleware.WriteJSON(w, http.StatusOK, list)
}

// GetRun handles GET /api/runs/{runID}
func (h *RunsHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := pathParam(r, "runID")

	run, err := h.runs.GetRun(r.Context(), runID)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to get run")
		writeServiceError(w, err, "Failed to get run")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, run)
}
