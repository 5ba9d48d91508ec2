package bigquery

import (
	"context"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/statement-review/internal/domain"
)

// Parsing run statuses.
const (
	RunStatusRunning = "RUNNING"
	RunStatusSuccess = "SUCCESS"
	RunStatusFailed  = "FAILED"
)

// RunRepository stores extraction runs and the model output each run produced.
type RunRepository interface {
	// StartParsingRun inserts a new parsing run with status=RUNNING and returns the parsing_run_id.
	StartParsingRun(ctx context.Context, documentID, model string) (string, error)

	// MarkParsingRunFailed sets status=FAILED, finished_ts and error_message. Errors are logged, not returned.
	MarkParsingRunFailed(ctx context.Context, parsingRunID string, parseErr error)

	// MarkParsingRunSucceeded sets status=SUCCESS and records the model's quality and confidence.
	MarkParsingRunSucceeded(ctx context.Context, parsingRunID, quality string, confidence float64) error

	// InsertModelOutput stores the raw model response for a run.
	InsertModelOutput(ctx context.Context, row *ModelOutputRow) error

	// ListRuns returns a document's runs, newest first.
	ListRuns(ctx context.Context, documentID string) ([]domain.RunSummary, error)

	// GetRun returns a run with its latest raw model output, or domain.ErrNotFound.
	GetRun(ctx context.Context, parsingRunID string) (*domain.RunDetail, error)
}

// LedgerRepository stores imported ledger transactions.
type LedgerRepository interface {
	// ImportTransactions inserts rows not already present, keyed on (txid, account_id).
	ImportTransactions(ctx context.Context, rows []domain.FlatTransaction) (domain.ImportOutcome, error)

	// ListRecentTransactions returns the most recently imported rows.
	ListRecentTransactions(ctx context.Context, limit int) ([]*LedgerTransactionRow, error)
}

// ParsingRunRow represents a parsing run record in BigQuery.
type ParsingRunRow struct {
	ParsingRunID string `bigquery:"parsing_run_id"`
	DocumentID   string `bigquery:"document_id"`

	StartedTS  time.Time              `bigquery:"started_ts"`
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"`

	ModelName string `bigquery:"model_name"`

	Status       string              `bigquery:"status"`
	ErrorMessage bigquery.NullString `bigquery:"error_message"`

	Quality    bigquery.NullString  `bigquery:"quality"`
	Confidence bigquery.NullFloat64 `bigquery:"confidence"`
}

// ModelOutputRow represents a model output record in BigQuery.
type ModelOutputRow struct {
	OutputID     string `bigquery:"output_id"`
	ParsingRunID string `bigquery:"parsing_run_id"`
	DocumentID   string `bigquery:"document_id"`

	ModelName     string              `bigquery:"model_name"`
	PromptID      bigquery.NullString `bigquery:"prompt_id"`
	PromptVersion bigquery.NullString `bigquery:"prompt_version"`

	RawText string `bigquery:"raw_text"`

	CreatedTS time.Time `bigquery:"created_ts"`
}

// LedgerTransactionRow represents one imported transaction in BigQuery.
type LedgerTransactionRow struct {
	TxID      string `bigquery:"txid"`
	AccountID string `bigquery:"account_id"`

	TxDate   bigquery.NullDate  `bigquery:"tx_date"`
	PostedTS bigquery.NullInt64 `bigquery:"posted_ts"`

	Source string              `bigquery:"source"`
	Payee  bigquery.NullString `bigquery:"payee"`
	Memo   bigquery.NullString `bigquery:"memo"`

	Direction   string   `bigquery:"direction"`
	Kind        string   `bigquery:"kind"`
	CcyOrAsset  string   `bigquery:"ccy_or_asset"`
	AmountOrQty *big.Rat `bigquery:"amount_or_qty"`

	Price    *big.Rat            `bigquery:"price"`
	PriceCcy bigquery.NullString `bigquery:"price_ccy"`

	CategoryID bigquery.NullString `bigquery:"category_id"`
	Status     bigquery.NullString `bigquery:"status"`
	TxType     bigquery.NullString `bigquery:"tx_type"`
	Ext1Kind   bigquery.NullString `bigquery:"ext1_kind"`
	Ext1Val    bigquery.NullString `bigquery:"ext1_val"`

	ImportedTS time.Time `bigquery:"imported_ts"`
}
