// Package runs reads a document's extraction history and rebuilds previews
// from stored model responses.
package runs

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/statement-review/internal/domain"
	"github.com/dvloznov/statement-review/internal/logger"
)

// Source is the run-history collaborator.
type Source interface {
	ListRuns(ctx context.Context, docID string) ([]domain.RunSummary, error)
	GetRun(ctx context.Context, runID string) (*domain.RunDetail, error)
}

// Selector lists runs and loads one of them as a preview.
type Selector struct {
	source Source
}

// NewSelector creates a Selector over source.
func NewSelector(source Source) *Selector {
	return &Selector{source: source}
}

// ListRuns returns the document's runs in the order the source returned them
// (newest first).
func (s *Selector) ListRuns(ctx context.Context, docID string) ([]domain.RunSummary, error) {
	if strings.TrimSpace(docID) == "" {
		return nil, fmt.Errorf("ListRuns: doc id is required")
	}
	list, err := s.source.ListRuns(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("ListRuns: %w", err)
	}
	if list == nil {
		list = []domain.RunSummary{}
	}
	return list, nil
}

// LoadRun fetches a run and parses its stored raw response into a preview.
func (s *Selector) LoadRun(ctx context.Context, runID string) (*domain.ExtractionPreview, error) {
	log := logger.FromContext(ctx)

	if strings.TrimSpace(runID) == "" {
		return nil, fmt.Errorf("LoadRun: run id is required")
	}

	detail, err := s.source.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("LoadRun: fetching run %s: %w", runID, err)
	}
	if strings.TrimSpace(detail.RawResponse) == "" {
		return nil, fmt.Errorf("LoadRun: run %s: %w", runID, &domain.ExtractionError{Message: "run has no stored response"})
	}

	preview, err := ParsePreview(detail.RawResponse)
	if err != nil {
		return nil, fmt.Errorf("LoadRun: run %s: %w", runID, err)
	}

	log.Debug().
		Str("run_id", runID).
		Int("transactions", len(preview.Transactions)).
		Msg("Run loaded")

	return preview, nil
}
