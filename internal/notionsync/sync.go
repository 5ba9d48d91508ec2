// Package notionsync mirrors imported ledger rows into a Notion database.
package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"github.com/rs/zerolog"

	bq "github.com/dvloznov/statement-review/internal/bigquery"
	"github.com/dvloznov/statement-review/internal/jobs"
	"github.com/dvloznov/statement-review/internal/logger"
)

// MirrorResult counts what a mirror pass did.
type MirrorResult struct {
	Created int
	Skipped int
	Failed  int
}

// MirrorLedger creates a page for every row whose key is not yet in the database.
// A failed page is logged and counted; the pass continues.
func MirrorLedger(ctx context.Context, rows []*bq.LedgerTransactionRow, notion NotionService, databaseID string, dryRun bool) (MirrorResult, error) {
	log := logger.FromContext(ctx)
	var res MirrorResult

	pages, err := queryAllNotionPages(ctx, notion, databaseID)
	if err != nil {
		return res, fmt.Errorf("MirrorLedger: %w", err)
	}

	existing := make(map[string]bool, len(pages))
	for _, page := range pages {
		if key := extractMirrorKey(page); key != "" {
			existing[key] = true
		}
	}

	for _, row := range rows {
		key := MirrorKey(row.AccountID, row.TxID)
		if existing[key] {
			res.Skipped++
			continue
		}
		existing[key] = true

		if dryRun {
			log.Info().Str("key", key).Msg("[DRY RUN] Would create Notion page")
			res.Created++
			continue
		}

		page, err := notion.CreatePage(ctx, databaseID, LedgerRowToProperties(row))
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to create Notion page")
			res.Failed++
			continue
		}
		log.Debug().Str("key", key).Str("page_id", string(page.ID)).Msg("Created Notion page")
		res.Created++
	}

	log.Info().
		Int("created", res.Created).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Bool("dry_run", dryRun).
		Msg("Ledger mirror complete")

	return res, nil
}

func queryAllNotionPages(ctx context.Context, notion NotionService, databaseID string) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor

	for {
		resp, err := notion.QueryDatabase(ctx, databaseID, &notionapi.DatabaseQueryRequest{StartCursor: cursor})
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		all = append(all, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return all, nil
}

// Refresher is the ledger refresh job handler. Without a Notion service it
// only re-reads the ledger and reports the row count.
type Refresher struct {
	ledger     LedgerReader
	notion     NotionService
	databaseID string
	log        zerolog.Logger
}

// NewRefresher creates a Refresher. notion may be nil.
func NewRefresher(ledger LedgerReader, notion NotionService, databaseID string, log zerolog.Logger) *Refresher {
	return &Refresher{ledger: ledger, notion: notion, databaseID: databaseID, log: log}
}

// Handle implements jobs.JobHandler.
func (r *Refresher) Handle(ctx context.Context, job *jobs.RefreshLedgerJob) (int, error) {
	log := r.log.With().Str("job_id", job.JobID).Str("reason", job.Reason).Logger()
	ctx = logger.WithContext(ctx, log)

	rows, err := r.ledger.ListRecentTransactions(ctx, job.Limit)
	if err != nil {
		return 0, fmt.Errorf("Refresh: listing ledger rows: %w", err)
	}

	if r.notion == nil || r.databaseID == "" {
		log.Info().Int("rows", len(rows)).Msg("Ledger refreshed")
		return len(rows), nil
	}

	res, err := MirrorLedger(ctx, rows, r.notion, r.databaseID, false)
	if err != nil {
		return 0, fmt.Errorf("Refresh: %w", err)
	}
	if res.Failed > 0 {
		return res.Created, fmt.Errorf("Refresh: %d of %d pages failed", res.Failed, len(rows))
	}
	return len(rows), nil
}
