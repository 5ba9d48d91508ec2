package bigquery

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"

	bq "github.com/dvloznov/statement-review/internal/bigquery"
	"github.com/dvloznov/statement-review/internal/domain"
)

// Re-export row types and interfaces from the shared package.
type (
	RunRepository    = bq.RunRepository
	LedgerRepository = bq.LedgerRepository

	ParsingRunRow        = bq.ParsingRunRow
	ModelOutputRow       = bq.ModelOutputRow
	LedgerTransactionRow = bq.LedgerTransactionRow
)

const (
	RunStatusRunning = bq.RunStatusRunning
	RunStatusSuccess = bq.RunStatusSuccess
	RunStatusFailed  = bq.RunStatusFailed
)

// Repository implements RunRepository and LedgerRepository over one shared
// BigQuery client.
type Repository struct {
	client *bigquery.Client
	tables Tables
}

var (
	_ RunRepository    = (*Repository)(nil)
	_ LedgerRepository = (*Repository)(nil)
)

// NewRepository creates a Repository with its own BigQuery client. An empty
// projectID uses the project of the ambient credentials.
func NewRepository(ctx context.Context, projectID, datasetID string) (*Repository, error) {
	if projectID == "" {
		projectID = bigquery.DetectProjectID
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return NewRepositoryWithClient(client, datasetID), nil
}

// NewRepositoryWithClient wraps an existing client.
func NewRepositoryWithClient(client *bigquery.Client, datasetID string) *Repository {
	return &Repository{
		client: client,
		tables: Tables{ProjectID: client.Project(), DatasetID: datasetID},
	}
}

// Close closes the BigQuery client connection.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// StartParsingRun delegates to StartParsingRunWithClient.
func (r *Repository) StartParsingRun(ctx context.Context, documentID, model string) (string, error) {
	return StartParsingRunWithClient(ctx, r.client, r.tables, documentID, model)
}

// MarkParsingRunFailed delegates to MarkParsingRunFailedWithClient.
func (r *Repository) MarkParsingRunFailed(ctx context.Context, parsingRunID string, parseErr error) {
	MarkParsingRunFailedWithClient(ctx, r.client, r.tables, parsingRunID, parseErr)
}

// MarkParsingRunSucceeded delegates to MarkParsingRunSucceededWithClient.
func (r *Repository) MarkParsingRunSucceeded(ctx context.Context, parsingRunID, quality string, confidence float64) error {
	return MarkParsingRunSucceededWithClient(ctx, r.client, r.tables, parsingRunID, quality, confidence)
}

// InsertModelOutput delegates to InsertModelOutputWithClient.
func (r *Repository) InsertModelOutput(ctx context.Context, row *ModelOutputRow) error {
	return InsertModelOutputWithClient(ctx, r.client, r.tables, row)
}

// ListRuns lists a document's runs as summaries, newest first.
func (r *Repository) ListRuns(ctx context.Context, documentID string) ([]domain.RunSummary, error) {
	rows, err := ListParsingRunsWithClient(ctx, r.client, r.tables, documentID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.RunSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, runSummary(row))
	}
	return out, nil
}

// GetRun loads a run and its latest model output. A run that has no output yet
// is returned with an empty raw response.
func (r *Repository) GetRun(ctx context.Context, parsingRunID string) (*domain.RunDetail, error) {
	run, err := GetParsingRunWithClient(ctx, r.client, r.tables, parsingRunID)
	if err != nil {
		return nil, err
	}

	detail := &domain.RunDetail{
		RunID:     run.ParsingRunID,
		DocID:     run.DocumentID,
		Status:    run.Status,
		Model:     run.ModelName,
		CreatedAt: run.StartedTS,
	}

	out, err := GetLatestModelOutputWithClient(ctx, r.client, r.tables, parsingRunID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		detail.RawResponse = out.RawText
	}
	return detail, nil
}

// ImportTransactions delegates to ImportLedgerTransactionsWithClient.
func (r *Repository) ImportTransactions(ctx context.Context, rows []domain.FlatTransaction) (domain.ImportOutcome, error) {
	return ImportLedgerTransactionsWithClient(ctx, r.client, r.tables, rows)
}

// ListRecentTransactions delegates to ListRecentLedgerTransactionsWithClient.
func (r *Repository) ListRecentTransactions(ctx context.Context, limit int) ([]*LedgerTransactionRow, error) {
	return ListRecentLedgerTransactionsWithClient(ctx, r.client, r.tables, limit)
}
