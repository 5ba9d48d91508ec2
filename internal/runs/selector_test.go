package runs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/statement-review/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSource struct {
	ListRunsFunc func(ctx context.Context, docID string) ([]domain.RunSummary, error)
	GetRunFunc   func(ctx context.Context, runID string) (*domain.RunDetail, error)
}

func (m *mockSource) ListRuns(ctx context.Context, docID string) ([]domain.RunSummary, error) {
	return m.ListRunsFunc(ctx, docID)
}

func (m *mockSource) GetRun(ctx context.Context, runID string) (*domain.RunDetail, error) {
	return m.GetRunFunc(ctx, runID)
}

const fullResponse = "```json\n" + `{
  "transactions": [
    {"txid": "S-1", "date": "2024-05-01", "account_id": "acc", "direction": "debit", "kind": "fiat", "amount_or_qty": 30},
    {"txid": "S-2", "date": "2024-05-03", "account_id": "acc", "direction": "Debit", "amount_or_qty": "20"}
  ],
  "audit": {"issues": ["page 3 blurred"], "assumptions": [{"field": "ccy", "value": "USD"}], "skipped_lines": []},
  "inferred_meta": {"opening_balance": "500.00", "closing_balance": 450, "account_id": "acc"},
  "quality": "good",
  "confidence": 0.92
}` + "\n```"

func TestParsePreview_FullObject(t *testing.T) {
	p, err := ParsePreview(fullResponse)
	require.NoError(t, err)

	require.Len(t, p.Transactions, 2)
	assert.Equal(t, domain.Debit, p.Transactions[0].Direction)
	assert.Equal(t, 20.0, p.Transactions[1].AmountOrQty)
	assert.Equal(t, "USD", p.Transactions[1].CcyOrAsset)
	assert.Equal(t, 500.0, p.InferredMeta.OpeningBalance)
	assert.Equal(t, 450.0, p.InferredMeta.ClosingBalance)
	assert.Equal(t, "acc", p.InferredAccount())
	assert.Equal(t, "good", p.Quality)
	assert.Equal(t, 0.92, p.Confidence)
	require.Len(t, p.Audit.Issues, 1)
	assert.Equal(t, "page 3 blurred", domain.AuditText(p.Audit.Issues[0]))
	assert.Equal(t, `{"field":"ccy","value":"USD"}`, domain.AuditText(p.Audit.Assumptions[0]))
	assert.Empty(t, p.Audit.SkippedLines)
	assert.Nil(t, p.ImportSummary)
}

func TestParsePreview_BareList(t *testing.T) {
	p, err := ParsePreview(`Here you go: [{"txid": "x"}, {"nope": 1}] thanks`)
	require.NoError(t, err)

	require.Len(t, p.Transactions, 1)
	assert.Equal(t, "x", p.Transactions[0].TxID)
	assert.NotNil(t, p.Audit.Issues)
}

func TestParsePreview_ImportSummaryAndClamp(t *testing.T) {
	p, err := ParsePreview(`{"transactions": [], "confidence": 3, "import_summary": {"imported": 2, "skipped": 1, "errors": ["dup"]}}`)
	require.NoError(t, err)

	assert.Equal(t, 1.0, p.Confidence)
	require.NotNil(t, p.ImportSummary)
	assert.Equal(t, domain.ImportOutcome{Imported: 2, Skipped: 1, Errors: []string{"dup"}}, *p.ImportSummary)
}

func TestParsePreview_Invalid(t *testing.T) {
	for _, raw := range []string{"", "   ", "not json", `{"transactions": "many"}`, `"just a string"`} {
		_, err := ParsePreview(raw)
		assert.Error(t, err, "raw %q", raw)
	}
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"fenced json", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n[1]\n```", `[1]`},
		{"chatter", "Sure! {\"a\":[1]} Done.", `{"a":[1]}`},
		{"already clean", `[{"a":1}]`, `[{"a":1}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanModelJSON(tt.in))
		})
	}
}

func TestSelector_ListRunsKeepsOrder(t *testing.T) {
	now := time.Now()
	want := []domain.RunSummary{
		{RunID: "r3", CreatedAt: now},
		{RunID: "r1", CreatedAt: now.Add(-2 * time.Hour)},
		{RunID: "r2", CreatedAt: now.Add(-time.Hour)},
	}
	s := NewSelector(&mockSource{
		ListRunsFunc: func(ctx context.Context, docID string) ([]domain.RunSummary, error) {
			assert.Equal(t, "doc-1", docID)
			return want, nil
		},
	})

	got, err := s.ListRuns(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSelector_ListRunsErrors(t *testing.T) {
	cause := &domain.ExtractionError{Status: 500, Message: "boom"}
	s := NewSelector(&mockSource{
		ListRunsFunc: func(ctx context.Context, docID string) ([]domain.RunSummary, error) {
			return nil, cause
		},
	})

	_, err := s.ListRuns(context.Background(), "doc-1")
	var ee *domain.ExtractionError
	assert.True(t, errors.As(err, &ee))

	_, err = s.ListRuns(context.Background(), " ")
	assert.Error(t, err)
}

func TestSelector_LoadRun(t *testing.T) {
	s := NewSelector(&mockSource{
		GetRunFunc: func(ctx context.Context, runID string) (*domain.RunDetail, error) {
			return &domain.RunDetail{RunID: runID, RawResponse: fullResponse}, nil
		},
	})

	p, err := s.LoadRun(context.Background(), "r1")
	require.NoError(t, err)
	assert.Len(t, p.Transactions, 2)
}

func TestSelector_LoadRunEmptyResponse(t *testing.T) {
	s := NewSelector(&mockSource{
		GetRunFunc: func(ctx context.Context, runID string) (*domain.RunDetail, error) {
			return &domain.RunDetail{RunID: runID}, nil
		},
	})

	_, err := s.LoadRun(context.Background(), "r1")

	var ee *domain.ExtractionError
	assert.True(t, errors.As(err, &ee))
}
