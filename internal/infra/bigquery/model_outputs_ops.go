package bigquery

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/statement-review/internal/domain"
)

// InsertModelOutputWithClient inserts a single ModelOutputRow into model_outputs.
// Uses DML INSERT so the row is immediately visible to GetLatestModelOutput.
func InsertModelOutputWithClient(ctx context.Context, client *bigquery.Client, t Tables, row *ModelOutputRow) error {
	q := client.Query(fmt.Sprintf(`
		INSERT INTO %s (
			output_id, parsing_run_id, document_id,
			model_name, prompt_id, prompt_version,
			raw_text, created_ts
		)
		VALUES (
			@output_id, @parsing_run_id, @document_id,
			@model_name, @prompt_id, @prompt_version,
			@raw_text, @created_ts
		)
	`, t.ref(modelOutputsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "output_id", Value: row.OutputID},
		{Name: "parsing_run_id", Value: row.ParsingRunID},
		{Name: "document_id", Value: row.DocumentID},
		{Name: "model_name", Value: row.ModelName},
		{Name: "prompt_id", Value: row.PromptID},
		{Name: "prompt_version", Value: row.PromptVersion},
		{Name: "raw_text", Value: row.RawText},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	return runDML(ctx, q, "InsertModelOutput")
}

// GetLatestModelOutputWithClient returns the newest output stored for a run,
// or domain.ErrNotFound when the run has none.
func GetLatestModelOutputWithClient(ctx context.Context, client *bigquery.Client, t Tables, parsingRunID string) (*ModelOutputRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			output_id, parsing_run_id, document_id,
			model_name, prompt_id, prompt_version,
			raw_text, created_ts
		FROM %s
		WHERE parsing_run_id = @parsing_run_id
		ORDER BY created_ts DESC
		LIMIT 1
	`, t.ref(modelOutputsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "parsing_run_id", Value: parsingRunID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetLatestModelOutput: query read: %w", err)
	}

	var r ModelOutputRow
	err = it.Next(&r)
	if errors.Is(err, iterator.Done) {
		return nil, fmt.Errorf("GetLatestModelOutput: run %s: %w", parsingRunID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetLatestModelOutput: iter next: %w", err)
	}

	return &r, nil
}
