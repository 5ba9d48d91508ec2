package bigquery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/statement-review/internal/domain"
	"github.com/dvloznov/statement-review/internal/logger"
)

const defaultRecentLimit = 500

// ImportLedgerTransactionsWithClient imports a batch into ledger_transactions.
// Keys already stored are looked up first so re-importing a statement is a no-op.
func ImportLedgerTransactionsWithClient(ctx context.Context, client *bigquery.Client, t Tables, rows []domain.FlatTransaction) (domain.ImportOutcome, error) {
	log := logger.FromContext(ctx)

	existing, err := existingLedgerKeysWithClient(ctx, client, t, rows)
	if err != nil {
		return domain.ImportOutcome{}, fmt.Errorf("ImportLedgerTransactions: %w", err)
	}

	plan := planImport(rows, existing, time.Now())
	if len(plan.insert) > 0 {
		inserter := client.DatasetInProject(t.ProjectID, t.DatasetID).Table(ledgerTable).Inserter()
		if err := inserter.Put(ctx, plan.insert); err != nil {
			return domain.ImportOutcome{}, fmt.Errorf("ImportLedgerTransactions: inserting rows: %w", err)
		}
	}

	log.Info().
		Int("rows", len(rows)).
		Int("imported", plan.outcome.Imported).
		Int("skipped", plan.outcome.Skipped).
		Int("errors", len(plan.outcome.Errors)).
		Msg("Ledger import complete")

	return plan.outcome, nil
}

// existingLedgerKeysWithClient returns which of the batch's keys are already stored.
func existingLedgerKeysWithClient(ctx context.Context, client *bigquery.Client, t Tables, rows []domain.FlatTransaction) (map[ledgerKey]bool, error) {
	existing := make(map[ledgerKey]bool)

	txids := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.TxID != "" {
			txids = append(txids, r.TxID)
		}
	}
	if len(txids) == 0 {
		return existing, nil
	}

	q := client.Query(fmt.Sprintf(`
		SELECT txid, account_id
		FROM %s
		WHERE txid IN UNNEST(@txids)
	`, t.ref(ledgerTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "txids", Value: txids},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("existingLedgerKeys: query read: %w", err)
	}

	for {
		var r struct {
			TxID      string `bigquery:"txid"`
			AccountID string `bigquery:"account_id"`
		}
		err := it.Next(&r)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("existingLedgerKeys: iter next: %w", err)
		}
		existing[ledgerKey{txID: r.TxID, accountID: r.AccountID}] = true
	}

	return existing, nil
}

// ListRecentLedgerTransactionsWithClient returns up to limit rows, most recently imported first.
func ListRecentLedgerTransactionsWithClient(ctx context.Context, client *bigquery.Client, t Tables, limit int) ([]*LedgerTransactionRow, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	q := client.Query(fmt.Sprintf(`
		SELECT *
		FROM %s
		ORDER BY imported_ts DESC, txid
		LIMIT @limit
	`, t.ref(ledgerTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "limit", Value: limit},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListRecentLedgerTransactions: query read: %w", err)
	}

	var rows []*LedgerTransactionRow
	for {
		var r LedgerTransactionRow
		err := it.Next(&r)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListRecentLedgerTransactions: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}
