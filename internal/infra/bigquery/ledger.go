package bigquery

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-review/internal/domain"
)

// ledgerKey identifies a ledger row. Two rows with the same txid on the same
// account are the same transaction.
type ledgerKey struct {
	txID      string
	accountID string
}

func keyOf(t domain.FlatTransaction) ledgerKey {
	return ledgerKey{txID: t.TxID, accountID: t.AccountID}
}

// importPlan is the result of checking a batch against the keys already stored.
type importPlan struct {
	insert  []*LedgerTransactionRow
	outcome domain.ImportOutcome
}

// planImport decides which rows to insert. Rows missing a txid or account go to
// Errors; rows whose key is already stored or appeared earlier in the batch are Skipped.
func planImport(rows []domain.FlatTransaction, existing map[ledgerKey]bool, now time.Time) importPlan {
	plan := importPlan{outcome: domain.ImportOutcome{Errors: []string{}}}
	seen := make(map[ledgerKey]bool, len(rows))

	for i, tx := range rows {
		if msg := checkRow(tx); msg != "" {
			plan.outcome.Errors = append(plan.outcome.Errors, fmt.Sprintf("row %d: %s", i+1, msg))
			continue
		}
		key := keyOf(tx)
		if existing[key] || seen[key] {
			plan.outcome.Skipped++
			continue
		}
		seen[key] = true
		plan.insert = append(plan.insert, ledgerRow(tx, now))
	}
	plan.outcome.Imported = len(plan.insert)
	return plan
}

func checkRow(t domain.FlatTransaction) string {
	switch {
	case strings.TrimSpace(t.TxID) == "":
		return "txid is required"
	case strings.TrimSpace(t.AccountID) == "":
		return fmt.Sprintf("txid %s: account_id is required", t.TxID)
	}
	return ""
}

// ledgerRow converts a transaction into its stored form. An unparseable date is stored as NULL.
func ledgerRow(t domain.FlatTransaction, now time.Time) *LedgerTransactionRow {
	row := &LedgerTransactionRow{
		TxID:        t.TxID,
		AccountID:   t.AccountID,
		Source:      t.Source,
		Payee:       nullString(t.Payee),
		Memo:        nullString(t.Memo),
		Direction:   string(t.Direction),
		Kind:        string(t.Kind),
		CcyOrAsset:  t.CcyOrAsset,
		AmountOrQty: decimal.NewFromFloat(t.AmountOrQty).Rat(),
		PriceCcy:    nullString(t.PriceCcy),
		CategoryID:  nullString(t.CategoryID),
		Status:      nullString(t.Status),
		TxType:      nullString(t.TxType),
		Ext1Kind:    nullString(t.Ext1Kind),
		Ext1Val:     nullString(t.Ext1Val),
		ImportedTS:  now,
	}
	if d, err := civil.ParseDate(strings.TrimSpace(t.Date)); err == nil {
		row.TxDate = bigquery.NullDate{Date: d, Valid: true}
	}
	if t.PostedTS != nil {
		row.PostedTS = bigquery.NullInt64{Int64: *t.PostedTS, Valid: true}
	}
	if t.Price != nil {
		row.Price = decimal.NewFromFloat(*t.Price).Rat()
	}
	return row
}

// ledgerTransaction converts a stored row back into a transaction.
func ledgerTransaction(r *LedgerTransactionRow) domain.FlatTransaction {
	t := domain.FlatTransaction{
		TxID:        r.TxID,
		AccountID:   r.AccountID,
		Source:      r.Source,
		Payee:       stringPtr(r.Payee),
		Memo:        stringPtr(r.Memo),
		Direction:   domain.ParseDirection(r.Direction),
		Kind:        domain.ParseKind(r.Kind),
		CcyOrAsset:  r.CcyOrAsset,
		AmountOrQty: ratFloat(r.AmountOrQty),
		PriceCcy:    stringPtr(r.PriceCcy),
		CategoryID:  stringPtr(r.CategoryID),
		Status:      stringPtr(r.Status),
		TxType:      stringPtr(r.TxType),
		Ext1Kind:    stringPtr(r.Ext1Kind),
		Ext1Val:     stringPtr(r.Ext1Val),
	}
	if r.TxDate.Valid {
		t.Date = r.TxDate.Date.String()
	}
	if r.PostedTS.Valid {
		ts := r.PostedTS.Int64
		t.PostedTS = &ts
	}
	if r.Price != nil {
		p := ratFloat(r.Price)
		t.Price = &p
	}
	return t
}

// LedgerTransactions converts stored rows into transactions.
func LedgerTransactions(rows []*LedgerTransactionRow) []domain.FlatTransaction {
	out := make([]domain.FlatTransaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, ledgerTransaction(r))
	}
	return out
}

func nullString(s *string) bigquery.NullString {
	if s == nil {
		return bigquery.NullString{}
	}
	return bigquery.NullString{StringVal: *s, Valid: true}
}

func stringPtr(n bigquery.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.StringVal
	return &s
}

func ratFloat(r *big.Rat) float64 {
	if r == nil {
		return 0
	}
	f, _ := r.Float64()
	return f
}
