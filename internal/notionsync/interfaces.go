package notionsync

import (
	"context"

	"github.com/jomei/notionapi"

	bq "github.com/dvloznov/statement-review/internal/bigquery"
)

// NotionService is the part of the Notion API the mirror uses.
type NotionService interface {
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)

	// QueryDatabase returns one page of rows starting at req.StartCursor.
	QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
}

// LedgerReader reads recently imported ledger rows.
type LedgerReader interface {
	ListRecentTransactions(ctx context.Context, limit int) ([]*bq.LedgerTransactionRow, error)
}
