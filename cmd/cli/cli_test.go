package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-review/internal/domain"
	"github.com/dvloznov/statement-review/internal/draft"
	"github.com/dvloznov/statement-review/internal/reconcile"
	"github.com/dvloznov/statement-review/internal/review"
)

type call struct {
	op    string
	index int
}

type mockEditor struct {
	calls []call
}

func (m *mockEditor) PatchRow(i int, p draft.Patch) error {
	m.calls = append(m.calls, call{"patch", i})
	return nil
}

func (m *mockEditor) SetConfirmed(i int, v bool) error {
	m.calls = append(m.calls, call{"confirm", i})
	return nil
}

func (m *mockEditor) DeleteRow(i int) error {
	if i == 9 {
		return domain.ErrRowConfirmed
	}
	m.calls = append(m.calls, call{"delete", i})
	return nil
}

func TestParseEdits_Order(t *testing.T) {
	e, err := parseEdits([]string{"2:payee=Cafe", "0:amount_or_qty=12.5"}, []string{"1"}, []string{"0", "3"})
	require.NoError(t, err)

	m := &mockEditor{}
	require.NoError(t, e.apply(m))

	assert.Equal(t, []call{
		{"patch", 2},
		{"patch", 0},
		{"confirm", 1},
		{"delete", 3},
		{"delete", 0},
	}, m.calls)
	require.NotNil(t, e.patches[1].patch.AmountOrQty)
	assert.Equal(t, 12.5, *e.patches[1].patch.AmountOrQty)
}

func TestParseEdits_Errors(t *testing.T) {
	tests := []struct {
		name                      string
		patches, confirms, delete []string
	}{
		{"patch without index", []string{"payee=x"}, nil, nil},
		{"patch bad index", []string{"a:payee=x"}, nil, nil},
		{"patch bad amount", []string{"0:amount_or_qty=ten"}, nil, nil},
		{"negative confirm", nil, []string{"-1"}, nil},
		{"bad delete", nil, nil, []string{"x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseEdits(tt.patches, tt.confirms, tt.delete)
			assert.Error(t, err)
		})
	}
}

func TestEditsApply_StopsOnError(t *testing.T) {
	e, err := parseEdits(nil, nil, []string{"9"})
	require.NoError(t, err)

	err = e.apply(&mockEditor{})
	assert.ErrorIs(t, err, domain.ErrRowConfirmed)
	assert.Contains(t, err.Error(), "delete row 9")
}

func TestReadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.csv")
	require.NoError(t, os.WriteFile(path, []byte("txid,date\n"), 0o600))

	text, err := readInput(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "txid,date\n", text)

	text, err = readInput("-", strings.NewReader("[]"))
	require.NoError(t, err)
	assert.Equal(t, "[]", text)

	_, err = readInput("", nil)
	assert.Error(t, err)
}

func TestRenderView(t *testing.T) {
	payee := "Coffee"
	rows := []domain.FlatTransaction{
		{TxID: "S-1", Date: "2024-05-01", AccountID: "chk", Payee: &payee, Direction: domain.Debit, Kind: domain.Fiat, CcyOrAsset: "USD", AmountOrQty: 4.5},
		{TxID: "S-2", Date: "2024-05-02", AccountID: "chk", Direction: domain.Credit, Kind: domain.Fiat, CcyOrAsset: "USD", AmountOrQty: 100},
	}
	v := review.View{
		Preview: &domain.ExtractionPreview{
			Quality:    "good",
			Confidence: 0.9,
			Audit:      domain.Audit{Issues: []json.RawMessage{json.RawMessage(`"page 2 blurry"`)}},
		},
		Rows:           rows,
		Confirmed:      []bool{true, false},
		Warnings:       []string{"txid prefix mismatch (2)"},
		Reconciliation: reconcile.Reconcile(rows, 0, 95.5),
		Outcome:        &domain.ImportOutcome{Imported: 2, Errors: []string{}},
	}

	var buf bytes.Buffer
	renderView(&buf, v)
	out := buf.String()

	assert.Contains(t, out, "Quality: good  Confidence: 0.90")
	assert.Contains(t, out, "-4.50 USD")
	assert.Contains(t, out, "+100.00 USD")
	assert.Contains(t, out, "Coffee")
	assert.Contains(t, out, "Diff 0.00 (balanced)")
	assert.Contains(t, out, "  - txid prefix mismatch (2)")
	assert.Contains(t, out, "  - page 2 blurry")
	assert.True(t, strings.HasSuffix(out, "Imported 2, skipped 0\n"))
}

func TestRenderRuns(t *testing.T) {
	var buf bytes.Buffer
	renderRuns(&buf, nil)
	assert.Equal(t, "No runs\n", buf.String())

	quality := "good"
	buf.Reset()
	renderRuns(&buf, []domain.RunSummary{
		{RunID: "r2", CreatedAt: time.Date(2024, 6, 2, 9, 30, 0, 0, time.UTC), Status: "SUCCESS", Quality: &quality},
	})
	assert.Contains(t, buf.String(), "r2")
	assert.Contains(t, buf.String(), "2024-06-02 09:30")
	assert.Contains(t, buf.String(), "good")
}

func TestRenderOutcome(t *testing.T) {
	var buf bytes.Buffer
	renderOutcome(&buf, domain.ImportOutcome{Imported: 1, Skipped: 1, Errors: []string{"row 2: txid is required"}})
	assert.Equal(t, "Imported 1, skipped 1, 1 errors\n  ! row 2: txid is required\n", buf.String())
}
