// Package reconcile compares a batch's net movement with the movement implied by
// the statement's opening and closing balances.
package reconcile

import (
	"strings"

	"github.com/dvloznov/statement-review/internal/domain"
	"github.com/shopspring/decimal"
)

// Result holds the derived totals. Amounts are not converted between currencies.
type Result struct {
	SumCredits decimal.Decimal `json:"sum_credits"`
	SumDebits  decimal.Decimal `json:"sum_debits"`
	Net        decimal.Decimal `json:"net"`
	Expected   decimal.Decimal `json:"expected"`
	Diff       decimal.Decimal `json:"diff"`
}

// Reconcile sums credits and debits in a single pass and compares
// net = credits - debits with expected = closing - opening.
func Reconcile(rows []domain.FlatTransaction, openingBalance, closingBalance float64) Result {
	credits := decimal.Zero
	debits := decimal.Zero

	for _, r := range rows {
		amt := decimal.NewFromFloat(r.AmountOrQty)
		switch strings.ToLower(strings.TrimSpace(string(r.Direction))) {
		case "credit":
			credits = credits.Add(amt)
		case "debit":
			debits = debits.Add(amt)
		}
	}

	net := credits.Sub(debits)
	expected := decimal.NewFromFloat(closingBalance).Sub(decimal.NewFromFloat(openingBalance))

	return Result{
		SumCredits: credits,
		SumDebits:  debits,
		Net:        net,
		Expected:   expected,
		Diff:       net.Sub(expected).Abs(),
	}
}

// Balanced reports whether the diff is within tolerance.
func (r Result) Balanced(tolerance float64) bool {
	return r.Diff.LessThanOrEqual(decimal.NewFromFloat(tolerance))
}

// Floats returns the totals as float64 in the order credits, debits, net, expected, diff.
func (r Result) Floats() (sumCredits, sumDebits, net, expected, diff float64) {
	return r.SumCredits.InexactFloat64(),
		r.SumDebits.InexactFloat64(),
		r.Net.InexactFloat64(),
		r.Expected.InexactFloat64(),
		r.Diff.InexactFloat64()
}
