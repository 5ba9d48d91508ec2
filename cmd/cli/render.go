package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dvloznov/statement-review/internal/domain"
	"github.com/dvloznov/statement-review/internal/review"
)

// balanceTolerance is the reconciliation diff still shown as balanced.
const balanceTolerance = 0.005

func renderView(w io.Writer, v review.View) {
	if v.Preview != nil {
		fmt.Fprintf(w, "Quality: %s  Confidence: %.2f\n", orDash(v.Preview.Quality), v.Preview.Confidence)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tOK\tTXID\tDATE\tACCOUNT\tPAYEE\tAMOUNT")
	for i, row := range v.Rows {
		mark := ""
		if i < len(v.Confirmed) && v.Confirmed[i] {
			mark = "x"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i, mark, row.TxID, row.Date, row.AccountID, payee(row), signed(row))
	}
	tw.Flush()

	credits, debits, net, expected, diff := v.Reconciliation.Floats()
	status := "balanced"
	if !v.Reconciliation.Balanced(balanceTolerance) {
		status = "NOT balanced"
	}
	fmt.Fprintf(w, "\nCredits %.2f  Debits %.2f  Net %.2f  Expected %.2f  Diff %.2f (%s)\n",
		credits, debits, net, expected, diff, status)

	if len(v.Warnings) > 0 {
		fmt.Fprintln(w, "\nWarnings:")
		for _, warning := range v.Warnings {
			fmt.Fprintf(w, "  - %s\n", warning)
		}
	}

	if v.Preview != nil {
		renderAudit(w, "Issues", v.Preview.Audit.Issues)
		renderAudit(w, "Assumptions", v.Preview.Audit.Assumptions)
		renderAudit(w, "Skipped lines", v.Preview.Audit.SkippedLines)
	}

	if summary := v.OutcomeSummary(); summary != "" {
		fmt.Fprintf(w, "\n%s\n", summary)
	}
}

func renderAudit(w io.Writer, title string, entries []json.RawMessage) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, e := range entries {
		fmt.Fprintf(w, "  - %s\n", domain.AuditText(e))
	}
}

func renderRuns(w io.Writer, list []domain.RunSummary) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No runs")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tCREATED\tSTATUS\tQUALITY\tCONFIDENCE")
	for _, r := range list {
		quality, confidence := "-", "-"
		if r.Quality != nil {
			quality = *r.Quality
		}
		if r.Confidence != nil {
			confidence = fmt.Sprintf("%.2f", *r.Confidence)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.RunID, r.CreatedAt.Format("2006-01-02 15:04"), r.Status, quality, confidence)
	}
	tw.Flush()
}

func renderOutcome(w io.Writer, o domain.ImportOutcome) {
	fmt.Fprintln(w, o.Summary())
	for _, e := range o.Errors {
		fmt.Fprintf(w, "  ! %s\n", e)
	}
}

func payee(t domain.FlatTransaction) string {
	switch {
	case t.Payee != nil:
		return *t.Payee
	case t.Memo != nil:
		return *t.Memo
	default:
		return "-"
	}
}

func signed(t domain.FlatTransaction) string {
	sign := "-"
	if t.Direction == domain.Credit {
		sign = "+"
	}
	return sign + t.Amount().String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
