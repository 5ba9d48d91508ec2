package importer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dvloznov/statement-review/internal/domain"
	"github.com/dvloznov/statement-review/internal/draft"
	"github.com/dvloznov/statement-review/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLedger is a hand-written Ledger whose behaviour is set per test.
type mockLedger struct {
	ImportTransactionsFunc func(ctx context.Context, rows []domain.FlatTransaction) (domain.ImportOutcome, error)
	RefreshIngestionFunc   func(ctx context.Context) error
	refreshCalls           atomic.Int32
}

func (m *mockLedger) ImportTransactions(ctx context.Context, rows []domain.FlatTransaction) (domain.ImportOutcome, error) {
	return m.ImportTransactionsFunc(ctx, rows)
}

func (m *mockLedger) RefreshIngestion(ctx context.Context) error {
	m.refreshCalls.Add(1)
	if m.RefreshIngestionFunc != nil {
		return m.RefreshIngestionFunc(ctx)
	}
	return nil
}

func rows(n int) []domain.FlatTransaction {
	out := make([]domain.FlatTransaction, n)
	for i := range out {
		out[i] = domain.FlatTransaction{TxID: string(rune('a' + i)), AccountID: "acc", Direction: domain.Debit, Kind: domain.Fiat, CcyOrAsset: "USD", AmountOrQty: 1}
	}
	return out
}

func TestImportBatch_Success(t *testing.T) {
	var got []domain.FlatTransaction
	ledger := &mockLedger{
		ImportTransactionsFunc: func(ctx context.Context, rs []domain.FlatTransaction) (domain.ImportOutcome, error) {
			got = rs
			return domain.ImportOutcome{Imported: 2}, nil
		},
	}
	c := NewCoordinator(ledger, nil)

	outcome, err := c.ImportBatch(context.Background(), rows(2))
	c.Wait()

	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "Imported 2, skipped 0", outcome.Summary())
	assert.NotNil(t, outcome.Errors)
	assert.Equal(t, int32(1), ledger.refreshCalls.Load())
}

func TestImportBatch_ZeroImportedIsSuccess(t *testing.T) {
	ledger := &mockLedger{
		ImportTransactionsFunc: func(ctx context.Context, rs []domain.FlatTransaction) (domain.ImportOutcome, error) {
			return domain.ImportOutcome{Skipped: 3}, nil
		},
	}
	c := NewCoordinator(ledger, nil)

	outcome, err := c.ImportBatch(context.Background(), rows(3))
	c.Wait()

	require.NoError(t, err)
	assert.Equal(t, 0, outcome.Imported)
	assert.Equal(t, 3, outcome.Skipped)
}

func TestImportBatch_TransportFailure(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	ledger := &mockLedger{
		ImportTransactionsFunc: func(ctx context.Context, rs []domain.FlatTransaction) (domain.ImportOutcome, error) {
			return domain.ImportOutcome{}, cause
		},
	}
	c := NewCoordinator(ledger, nil)

	_, err := c.ImportBatch(context.Background(), rows(1))
	c.Wait()

	var ie *domain.ImportError
	require.True(t, errors.As(err, &ie))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, int32(0), ledger.refreshCalls.Load(), "no refresh after a failed import")
}

func TestImportBatch_ServerErrorPassesThrough(t *testing.T) {
	ledger := &mockLedger{
		ImportTransactionsFunc: func(ctx context.Context, rs []domain.FlatTransaction) (domain.ImportOutcome, error) {
			return domain.ImportOutcome{}, &domain.ImportError{Status: 502, Message: "ledger down"}
		},
	}
	c := NewCoordinator(ledger, nil)

	_, err := c.ImportBatch(context.Background(), rows(1))

	var ie *domain.ImportError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, 502, ie.Status)
	assert.Equal(t, "ledger down", ie.Message)
}

func TestImportBatch_RefreshFailureIsLoggedOnly(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(buf))
	ledger := &mockLedger{
		ImportTransactionsFunc: func(ctx context.Context, rs []domain.FlatTransaction) (domain.ImportOutcome, error) {
			return domain.ImportOutcome{Imported: 1}, nil
		},
		RefreshIngestionFunc: func(ctx context.Context) error {
			return errors.New("refresh endpoint 500")
		},
	}
	c := NewCoordinator(ledger, nil)

	outcome, err := c.ImportBatch(ctx, rows(1))
	c.Wait()

	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Imported)
	assert.True(t, strings.Contains(buf.String(), "Ledger refresh failed"), buf.String())
}

func TestImportBatch_RefreshOutlivesCallerContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var refreshErr atomic.Value
	ledger := &mockLedger{
		ImportTransactionsFunc: func(ctx context.Context, rs []domain.FlatTransaction) (domain.ImportOutcome, error) {
			return domain.ImportOutcome{Imported: 1}, nil
		},
		RefreshIngestionFunc: func(ctx context.Context) error {
			refreshErr.Store(ctx.Err() == nil)
			return nil
		},
	}
	c := NewCoordinator(ledger, nil)

	_, err := c.ImportBatch(ctx, rows(1))
	cancel()
	c.Wait()

	require.NoError(t, err)
	assert.Equal(t, true, refreshErr.Load())
}

func TestEntryPoints(t *testing.T) {
	var seen [][]domain.FlatTransaction
	ledger := &mockLedger{
		ImportTransactionsFunc: func(ctx context.Context, rs []domain.FlatTransaction) (domain.ImportOutcome, error) {
			seen = append(seen, rs)
			return domain.ImportOutcome{Imported: len(rs)}, nil
		},
	}
	c := NewCoordinator(ledger, nil)
	p := &domain.ExtractionPreview{Transactions: rows(3)}
	d := draft.FromPreview(p)
	require.NoError(t, d.DeleteRow(0))

	_, err := c.ImportExtraction(context.Background(), p)
	require.NoError(t, err)
	_, err = c.ImportDraft(context.Background(), d)
	require.NoError(t, err)
	c.Wait()

	require.Len(t, seen, 2)
	assert.Len(t, seen[0], 3, "extraction entry point ignores edits")
	assert.Len(t, seen[1], 2, "draft entry point sends edited rows")
	assert.Equal(t, 2, d.Len(), "import does not mutate the draft")
}

func TestImportDraft_InFlight(t *testing.T) {
	inFlight := &draft.InFlight{}
	inFlight.Add(SourceDraft)
	ledger := &mockLedger{
		ImportTransactionsFunc: func(ctx context.Context, rs []domain.FlatTransaction) (domain.ImportOutcome, error) {
			t.Fatal("ledger must not be called while an import is in flight")
			return domain.ImportOutcome{}, nil
		},
	}
	c := NewCoordinator(ledger, inFlight)

	_, err := c.ImportDraft(context.Background(), draft.FromPreview(nil))

	assert.ErrorIs(t, err, ErrInFlight)
}

func TestImportExtraction_NilPreview(t *testing.T) {
	c := NewCoordinator(&mockLedger{}, nil)

	_, err := c.ImportExtraction(context.Background(), nil)

	var ie *domain.ImportError
	assert.True(t, errors.As(err, &ie))
}
