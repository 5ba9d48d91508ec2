// Package validation flags suspicious rows in a batch. Warnings are advisory and
// never block editing or import.
package validation

import (
	"fmt"
	"strings"

	"github.com/dvloznov/statement-review/internal/domain"
)

// Rule identifies which check produced a warning.
type Rule string

const (
	RuleTxidPrefix Rule = "txid_prefix"
	RuleAccount    Rule = "account_mismatch"
	RuleDirection  Rule = "direction"
	RuleAmount     Rule = "amount"
)

// Warning is one aggregated message with the number of rows that triggered it.
type Warning struct {
	Rule    Rule
	Message string
	Count   int
}

// String renders the warning, suffixed with the count when more than one row hit it.
func (w Warning) String() string {
	if w.Count > 1 {
		return fmt.Sprintf("%s (%d)", w.Message, w.Count)
	}
	return w.Message
}

// Aggregate runs every rule over every transaction and merges identical messages,
// keeping the order in which each message first appeared.
func Aggregate(txs []domain.FlatTransaction, expectedAccountID, expectedTxidPrefix string) []Warning {
	var out []Warning
	index := make(map[string]int)

	add := func(rule Rule, msg string) {
		if i, ok := index[msg]; ok {
			out[i].Count++
			return
		}
		index[msg] = len(out)
		out = append(out, Warning{Rule: rule, Message: msg, Count: 1})
	}

	for _, tx := range txs {
		if expectedTxidPrefix != "" && !strings.HasPrefix(tx.TxID, expectedTxidPrefix) {
			add(RuleTxidPrefix, fmt.Sprintf("txid does not start with %q", expectedTxidPrefix))
		}
		if tx.AccountID != expectedAccountID {
			add(RuleAccount, fmt.Sprintf("account_id differs from statement account %q", expectedAccountID))
		}
		if tx.Direction != domain.Debit && tx.Direction != domain.Credit {
			add(RuleDirection, "direction must be Debit or Credit")
		}
		if !(tx.AmountOrQty > 0) {
			add(RuleAmount, "amount_or_qty must be a positive number")
		}
	}

	return out
}

// ComputeWarnings returns deduplicated human-readable warnings for a batch.
func ComputeWarnings(txs []domain.FlatTransaction, expectedAccountID, expectedTxidPrefix string) []string {
	ws := Aggregate(txs, expectedAccountID, expectedTxidPrefix)
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.String()
	}
	return out
}
