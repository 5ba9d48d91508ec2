package extraction

import (
	"context"

	bq "github.com/dvloznov/statement-review/internal/bigquery"
	"github.com/dvloznov/statement-review/internal/domain"
	"github.com/dvloznov/statement-review/internal/jobs"
)

// Fetcher downloads a stored document.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// Model sends a prompt and a PDF to a language model and returns its raw text answer.
type Model interface {
	Generate(ctx context.Context, model, prompt string, pdf []byte) (string, error)
}

// RunStore records parsing runs and the raw model output.
type RunStore interface {
	StartParsingRun(ctx context.Context, documentID, model string) (string, error)
	MarkParsingRunFailed(ctx context.Context, parsingRunID string, parseErr error)
	MarkParsingRunSucceeded(ctx context.Context, parsingRunID, quality string, confidence float64) error
	InsertModelOutput(ctx context.Context, row *bq.ModelOutputRow) error
}

// Ledger imports extracted transactions when the caller asks for it.
type Ledger interface {
	ImportTransactions(ctx context.Context, rows []domain.FlatTransaction) (domain.ImportOutcome, error)
}

// RefreshPublisher enqueues a ledger refresh after an embedded import.
type RefreshPublisher interface {
	PublishRefreshLedger(ctx context.Context, job *jobs.RefreshLedgerJob) error
}
