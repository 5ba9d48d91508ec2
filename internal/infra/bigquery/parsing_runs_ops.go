package bigquery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/statement-review/internal/domain"
	"github.com/dvloznov/statement-review/internal/logger"
)

// StartParsingRunWithClient inserts a new row into parsing_runs with status=RUNNING
// and returns the generated parsing_run_id.
func StartParsingRunWithClient(ctx context.Context, client *bigquery.Client, t Tables, documentID, model string) (string, error) {
	parsingRunID := uuid.NewString()

	q := client.Query(fmt.Sprintf(`
		INSERT %s (
			parsing_run_id,
			document_id,
			started_ts,
			model_name,
			status
		)
		VALUES (
			@parsing_run_id,
			@document_id,
			@started_ts,
			@model_name,
			@status
		)
	`, t.ref(parsingRunsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "parsing_run_id", Value: parsingRunID},
		{Name: "document_id", Value: documentID},
		{Name: "started_ts", Value: time.Now()},
		{Name: "model_name", Value: model},
		{Name: "status", Value: RunStatusRunning},
	}

	if err := runDML(ctx, q, "StartParsingRun"); err != nil {
		return "", err
	}
	return parsingRunID, nil
}

// MarkParsingRunFailedWithClient sets status=FAILED, finished_ts and error_message.
// Failures are logged; the caller is already handling a more important error.
func MarkParsingRunFailedWithClient(ctx context.Context, client *bigquery.Client, t Tables, parsingRunID string, parseErr error) {
	log := logger.FromContext(ctx)

	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE parsing_run_id = @parsing_run_id
	`, t.ref(parsingRunsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: RunStatusFailed},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: truncateError(parseErr)},
		{Name: "parsing_run_id", Value: parsingRunID},
	}

	if err := runDML(ctx, q, "MarkParsingRunFailed"); err != nil {
		log.Error().
			Err(err).
			Str("parsing_run_id", parsingRunID).
			Msg("Failed to mark parsing run as failed")
	}
}

// MarkParsingRunSucceededWithClient sets status=SUCCESS, finished_ts, quality and confidence.
func MarkParsingRunSucceededWithClient(ctx context.Context, client *bigquery.Client, t Tables, parsingRunID, quality string, confidence float64) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = NULL,
		    quality = @quality,
		    confidence = @confidence
		WHERE parsing_run_id = @parsing_run_id
	`, t.ref(parsingRunsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: RunStatusSuccess},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "quality", Value: quality},
		{Name: "confidence", Value: confidence},
		{Name: "parsing_run_id", Value: parsingRunID},
	}

	return runDML(ctx, q, "MarkParsingRunSucceeded")
}

// ListParsingRunsWithClient returns all runs for a document, newest first.
func ListParsingRunsWithClient(ctx context.Context, client *bigquery.Client, t Tables, documentID string) ([]*ParsingRunRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			parsing_run_id,
			document_id,
			started_ts,
			finished_ts,
			model_name,
			status,
			error_message,
			quality,
			confidence
		FROM %s
		WHERE document_id = @document_id
		ORDER BY started_ts DESC
	`, t.ref(parsingRunsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "document_id", Value: documentID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListParsingRuns: query read: %w", err)
	}

	var rows []*ParsingRunRow
	for {
		var r ParsingRunRow
		err := it.Next(&r)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListParsingRuns: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}

// GetParsingRunWithClient returns a single run or domain.ErrNotFound.
func GetParsingRunWithClient(ctx context.Context, client *bigquery.Client, t Tables, parsingRunID string) (*ParsingRunRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			parsing_run_id,
			document_id,
			started_ts,
			finished_ts,
			model_name,
			status,
			error_message,
			quality,
			confidence
		FROM %s
		WHERE parsing_run_id = @parsing_run_id
		LIMIT 1
	`, t.ref(parsingRunsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "parsing_run_id", Value: parsingRunID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetParsingRun: query read: %w", err)
	}

	var r ParsingRunRow
	err = it.Next(&r)
	if errors.Is(err, iterator.Done) {
		return nil, fmt.Errorf("GetParsingRun: run %s: %w", parsingRunID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetParsingRun: iter next: %w", err)
	}

	return &r, nil
}
