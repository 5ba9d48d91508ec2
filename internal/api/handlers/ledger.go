package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-review/internal/api/middleware"
	"github.com/dvloznov/statement-review/internal/domain"
	"github.com/dvloznov/statement-review/internal/jobs"
	"github.com/dvloznov/statement-review/internal/normalize"
)

// LedgerHandler handles batch imports and ingestion refreshes.
type LedgerHandler struct {
	importer  Importer
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(importer Importer, publisher jobs.Publisher, log zerolog.Logger) *LedgerHandler {
	return &LedgerHandler{
		importer:  importer,
		publisher: publisher,
		log:       log,
	}
}

// ImportTransactions handles POST /api/ledger/import
func (h *LedgerHandler) ImportTransactions(w http.ResponseWriter, r *http.Request) {
	var rows []domain.FlatTransaction
	if err := decodeJSON(w, r, &rows); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Request body must be a JSON list of transactions")
		return
	}

	for i := range rows {
		rows[i] = normalize.SanitizeTransaction(rows[i])
	}

	outcome, err := h.importer.ImportTransactions(r.Context(), rows)
	if err != nil {
		h.log.Error().Err(err).Int("rows", len(rows)).Msg("Failed to import transactions")
		writeServiceError(w, err, "Import failed")
		return
	}
	if outcome.Errors == nil {
		outcome.Errors = []string{}
	}

	h.log.Info().
		Int("rows", len(rows)).
		Int("imported", outcome.Imported).
		Int("skipped", outcome.Skipped).
		Int("errors", len(outcome.Errors)).
		Msg("Transactions imported")

	middleware.WriteJSON(w, http.StatusOK, outcome)
}

// RefreshIngestion handles POST /api/ledger/refresh. The body is optional.
func (h *LedgerHandler) RefreshIngestion(w http.ResponseWriter, r *http.Request) {
	job := &jobs.RefreshLedgerJob{
		JobID:     uuid.NewString(),
		Reason:    r.URL.Query().Get("reason"),
		CreatedAt: time.Now(),
	}
	if job.Reason == "" {
		job.Reason = "import"
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			job.Limit = limit
		}
	}
	jobID := job.JobID

	if err := h.publisher.PublishRefreshLedger(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue ledger refresh")
		middleware.WriteError(w, http.StatusServiceUnavailable, "Failed to enqueue ledger refresh")
		return
	}

	h.log.Info().Str("job_id", jobID).Msg("Ledger refresh enqueued")

	// The worker may already own job; report what was submitted.
	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": string(jobs.JobStatusPending),
	})
}
