// Package handlers implements the HTTP endpoints the review front-end talks to.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/dvloznov/statement-review/internal/api/middleware"
	"github.com/dvloznov/statement-review/internal/domain"
)

// Extractor runs an extraction over a stored document.
type Extractor interface {
	Extract(ctx context.Context, req domain.ExtractionRequest) (*domain.ExtractionPreview, error)
}

// RunReader reads a document's extraction history.
type RunReader interface {
	ListRuns(ctx context.Context, documentID string) ([]domain.RunSummary, error)
	GetRun(ctx context.Context, parsingRunID string) (*domain.RunDetail, error)
}

// Importer writes a batch of rows to the ledger.
type Importer interface {
	ImportTransactions(ctx context.Context, rows []domain.FlatTransaction) (domain.ImportOutcome, error)
}

// maxBodyBytes caps request bodies; a bulk import of a long statement stays
// well under it.
const maxBodyBytes = 8 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// writeServiceError maps err onto a status code and writes it. Missing
// resources are 404; anything else is a 500 carrying the error text so the
// reviewer can see what went wrong.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	if errors.Is(err, domain.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	middleware.WriteError(w, http.StatusInternalServerError, fallback+": "+err.Error())
}

// pathParam returns a decoded chi URL parameter. chi matches on the raw path,
// so ids escaped by the client arrive still encoded.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}
