// Package importer submits reviewed batches to the ledger.
package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dvloznov/statement-review/internal/domain"
	"github.com/dvloznov/statement-review/internal/draft"
	"github.com/dvloznov/statement-review/internal/logger"
)

// ErrInFlight is returned when the same entry point is already submitting.
var ErrInFlight = errors.New("import already in progress")

// Entry points, also used as in-flight keys.
const (
	SourceExtraction = "extraction"
	SourceDraft      = "draft"
)

// Ledger is the import side of the ledger collaborator.
type Ledger interface {
	ImportTransactions(ctx context.Context, rows []domain.FlatTransaction) (domain.ImportOutcome, error)
	RefreshIngestion(ctx context.Context) error
}

// Coordinator funnels both entry points into one import call and triggers a
// best-effort ledger refresh afterwards. It does not deduplicate submissions;
// the ledger reports duplicates as skipped.
type Coordinator struct {
	ledger   Ledger
	inFlight *draft.InFlight
	wg       sync.WaitGroup
}

// NewCoordinator creates a coordinator. A nil inFlight gets a private set.
func NewCoordinator(ledger Ledger, inFlight *draft.InFlight) *Coordinator {
	if inFlight == nil {
		inFlight = &draft.InFlight{}
	}
	return &Coordinator{ledger: ledger, inFlight: inFlight}
}

// ImportExtraction imports the preview's transactions as extracted, ignoring any edits.
func (c *Coordinator) ImportExtraction(ctx context.Context, p *domain.ExtractionPreview) (domain.ImportOutcome, error) {
	if p == nil {
		return domain.ImportOutcome{}, &domain.ImportError{Message: "no extraction loaded"}
	}
	return c.importFrom(ctx, SourceExtraction, p.Transactions)
}

// ImportDraft imports the current rows of the draft.
func (c *Coordinator) ImportDraft(ctx context.Context, d *draft.Draft) (domain.ImportOutcome, error) {
	if d == nil {
		return domain.ImportOutcome{}, &domain.ImportError{Message: "no draft loaded"}
	}
	return c.importFrom(ctx, SourceDraft, d.Rows())
}

func (c *Coordinator) importFrom(ctx context.Context, source string, rows []domain.FlatTransaction) (domain.ImportOutcome, error) {
	if !c.inFlight.Add(source) {
		return domain.ImportOutcome{}, &domain.ImportError{Message: fmt.Sprintf("%s: %v", source, ErrInFlight), Err: ErrInFlight}
	}
	defer c.inFlight.Remove(source)

	return c.ImportBatch(ctx, rows)
}

// ImportBatch submits rows to the ledger. On success it always returns counts,
// even when nothing was imported, and schedules a ledger refresh.
func (c *Coordinator) ImportBatch(ctx context.Context, rows []domain.FlatTransaction) (domain.ImportOutcome, error) {
	log := logger.FromContext(ctx)

	outcome, err := c.ledger.ImportTransactions(ctx, rows)
	if err != nil {
		var ie *domain.ImportError
		if errors.As(err, &ie) {
			return domain.ImportOutcome{}, err
		}
		return domain.ImportOutcome{}, &domain.ImportError{Err: err}
	}
	if outcome.Errors == nil {
		outcome.Errors = []string{}
	}

	log.Info().
		Int("rows", len(rows)).
		Int("imported", outcome.Imported).
		Int("skipped", outcome.Skipped).
		Int("errors", len(outcome.Errors)).
		Msg("Batch imported")

	c.refresh(ctx)

	return outcome, nil
}

// refresh asks the ledger to refetch its transactions without blocking the caller.
func (c *Coordinator) refresh(ctx context.Context) {
	log := logger.FromContext(ctx)
	refreshCtx := context.WithoutCancel(ctx)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.ledger.RefreshIngestion(refreshCtx); err != nil {
			log.Warn().Err(err).Msg("Ledger refresh failed")
		}
	}()
}

// Wait blocks until scheduled refreshes have finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}
