package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/statement-review/internal/domain"
)

const (
	parsingRunsTable  = "parsing_runs"
	modelOutputsTable = "model_outputs"
	ledgerTable       = "ledger_transactions"

	maxErrorMessage = 2000
)

// Tables names the project and dataset every query targets.
type Tables struct {
	ProjectID string
	DatasetID string
}

// ref returns the fully qualified, backtick-quoted table name.
func (t Tables) ref(table string) string {
	return fmt.Sprintf("`%s.%s.%s`", t.ProjectID, t.DatasetID, table)
}

// runDML runs a DML statement and waits for it to complete.
func runDML(ctx context.Context, q *bigquery.Query, op string) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s: running query: %w", op, err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("%s: waiting for job: %w", op, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("%s: job error: %w", op, err)
	}

	return nil
}

// runSummary converts a row to the run-history entry served to reviewers.
func runSummary(r *ParsingRunRow) domain.RunSummary {
	s := domain.RunSummary{
		RunID:     r.ParsingRunID,
		CreatedAt: r.StartedTS,
		Status:    r.Status,
	}
	if r.Quality.Valid {
		q := r.Quality.StringVal
		s.Quality = &q
	}
	if r.Confidence.Valid {
		c := r.Confidence.Float64
		s.Confidence = &c
	}
	return s
}

func truncateError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > maxErrorMessage {
		msg = msg[:maxErrorMessage]
	}
	return msg
}
