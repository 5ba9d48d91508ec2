package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bq "github.com/dvloznov/statement-review/internal/bigquery"
	"github.com/dvloznov/statement-review/internal/domain"
	"github.com/dvloznov/statement-review/internal/jobs"
)

type mockStore struct {
	started   []string
	failed    map[string]error
	succeeded map[string]string
	outputs   []*bq.ModelOutputRow

	StartErr  error
	InsertErr error
}

func newMockStore() *mockStore {
	return &mockStore{failed: map[string]error{}, succeeded: map[string]string{}}
}

func (m *mockStore) StartParsingRun(ctx context.Context, documentID, model string) (string, error) {
	if m.StartErr != nil {
		return "", m.StartErr
	}
	m.started = append(m.started, documentID+"|"+model)
	return "run-1", nil
}

func (m *mockStore) MarkParsingRunFailed(ctx context.Context, parsingRunID string, parseErr error) {
	m.failed[parsingRunID] = parseErr
}

func (m *mockStore) MarkParsingRunSucceeded(ctx context.Context, parsingRunID, quality string, confidence float64) error {
	m.succeeded[parsingRunID] = quality
	return nil
}

func (m *mockStore) InsertModelOutput(ctx context.Context, row *bq.ModelOutputRow) error {
	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.outputs = append(m.outputs, row)
	return nil
}

type mockModel struct {
	GenerateFunc func(ctx context.Context, model, prompt string, pdf []byte) (string, error)
}

func (m *mockModel) Generate(ctx context.Context, model, prompt string, pdf []byte) (string, error) {
	return m.GenerateFunc(ctx, model, prompt, pdf)
}

type mockFetcher struct {
	uris []string
}

func (m *mockFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	m.uris = append(m.uris, uri)
	return []byte("%PDF-1.7"), nil
}

type mockLedger struct {
	ImportTransactionsFunc func(ctx context.Context, rows []domain.FlatTransaction) (domain.ImportOutcome, error)
}

func (m *mockLedger) ImportTransactions(ctx context.Context, rows []domain.FlatTransaction) (domain.ImportOutcome, error) {
	return m.ImportTransactionsFunc(ctx, rows)
}

type mockPublisher struct {
	published []*jobs.RefreshLedgerJob
	err       error
}

func (m *mockPublisher) PublishRefreshLedger(ctx context.Context, job *jobs.RefreshLedgerJob) error {
	m.published = append(m.published, job)
	return m.err
}

const modelAnswer = "```json\n" + `{
  "transactions": [
    {"txid": "S-1", "date": "2024-05-01", "account_id": "chk", "direction": "Debit", "amount_or_qty": 30},
    {"txid": "S-2", "date": "2024-05-03", "account_id": "chk", "direction": "Debit", "amount_or_qty": 20}
  ],
  "inferred_meta": {"opening_balance": 500, "closing_balance": 450, "account_id": "chk"},
  "quality": "good",
  "confidence": 0.92
}` + "\n```"

func answer(raw string) *mockModel {
	return &mockModel{GenerateFunc: func(ctx context.Context, model, prompt string, pdf []byte) (string, error) {
		return raw, nil
	}}
}

func TestService_Extract(t *testing.T) {
	store := newMockStore()
	blobs := &mockFetcher{}
	var gotModel, gotPrompt string
	model := &mockModel{GenerateFunc: func(ctx context.Context, model, prompt string, pdf []byte) (string, error) {
		gotModel, gotPrompt = model, prompt
		return modelAnswer, nil
	}}
	svc := NewService(store, model, blobs, WithBucket("statements"))

	p, err := svc.Extract(context.Background(), domain.ExtractionRequest{BlobID: "may.pdf", DocID: "doc-1"})

	require.NoError(t, err)
	assert.Len(t, p.Transactions, 2)
	assert.Equal(t, 450.0, p.InferredMeta.ClosingBalance)
	assert.Nil(t, p.ImportSummary)

	assert.Equal(t, []string{"gs://statements/may.pdf"}, blobs.uris)
	assert.Equal(t, []string{"doc-1|" + DefaultModelName}, store.started)
	assert.Equal(t, DefaultModelName, gotModel)
	assert.Equal(t, defaultPrompt, gotPrompt)
	assert.Equal(t, "good", store.succeeded["run-1"])
	assert.Empty(t, store.failed)

	require.Len(t, store.outputs, 1)
	out := store.outputs[0]
	assert.Equal(t, modelAnswer, out.RawText)
	assert.Equal(t, DefaultPromptID, out.PromptID.StringVal)
	assert.NotEmpty(t, out.OutputID)
}

func TestService_ExtractCustomPrompt(t *testing.T) {
	store := newMockStore()
	var gotModel, gotPrompt string
	model := &mockModel{GenerateFunc: func(ctx context.Context, model, prompt string, pdf []byte) (string, error) {
		gotModel, gotPrompt = model, prompt
		return modelAnswer, nil
	}}
	svc := NewService(store, model, &mockFetcher{}, WithDefaultModel("gemini-x"))

	_, err := svc.Extract(context.Background(), domain.ExtractionRequest{
		BlobID:        "gs://b/june.pdf",
		Prompt:        "extract it",
		PromptID:      "custom",
		AssistantName: "Ledger Bot",
	})

	require.NoError(t, err)
	assert.Equal(t, "gemini-x", gotModel)
	assert.Equal(t, "Assistant: Ledger Bot\n\nextract it", gotPrompt)
	assert.Equal(t, []string{"june.pdf|gemini-x"}, store.started, "doc id defaults to the file name")
	assert.Equal(t, "custom", store.outputs[0].PromptID.StringVal)
	assert.False(t, store.outputs[0].PromptVersion.Valid)
}

func TestService_ExtractFailures(t *testing.T) {
	t.Run("bad blob id never starts a run", func(t *testing.T) {
		store := newMockStore()
		svc := NewService(store, answer(modelAnswer), &mockFetcher{})

		_, err := svc.Extract(context.Background(), domain.ExtractionRequest{BlobID: "may.pdf"})

		require.Error(t, err)
		assert.Empty(t, store.started)
		assert.Empty(t, store.failed)
	})

	t.Run("model error marks run failed", func(t *testing.T) {
		store := newMockStore()
		model := &mockModel{GenerateFunc: func(ctx context.Context, model, prompt string, pdf []byte) (string, error) {
			return "", errors.New("quota exceeded")
		}}
		svc := NewService(store, model, &mockFetcher{})

		_, err := svc.Extract(context.Background(), domain.ExtractionRequest{BlobID: "gs://b/x.pdf"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "generate")
		assert.EqualError(t, store.failed["run-1"], "quota exceeded")
		assert.Empty(t, store.outputs)
	})

	t.Run("unparseable answer is stored then marked failed", func(t *testing.T) {
		store := newMockStore()
		svc := NewService(store, answer("I could not read this statement."), &mockFetcher{})

		_, err := svc.Extract(context.Background(), domain.ExtractionRequest{BlobID: "gs://b/x.pdf"})

		require.Error(t, err)
		assert.Len(t, store.outputs, 1)
		assert.Contains(t, store.failed, "run-1")
		assert.Empty(t, store.succeeded)
	})
}

func TestService_ExtractWithImport(t *testing.T) {
	var imported int
	ledger := &mockLedger{ImportTransactionsFunc: func(ctx context.Context, rows []domain.FlatTransaction) (domain.ImportOutcome, error) {
		imported = len(rows)
		return domain.ImportOutcome{Imported: len(rows)}, nil
	}}
	svc := NewService(newMockStore(), answer(modelAnswer), &mockFetcher{}, WithLedger(ledger))

	p, err := svc.Extract(context.Background(), domain.ExtractionRequest{BlobID: "gs://b/x.pdf", Import: true})

	require.NoError(t, err)
	assert.Equal(t, 2, imported)
	assert.Empty(t, p.ImportSummary.Errors)
	require.NotNil(t, p.ImportSummary)
	assert.Equal(t, "Imported 2, skipped 0", p.ImportSummary.Summary())
	assert.NotNil(t, p.ImportSummary.Errors)
}

func TestService_ExtractImportFailureKeepsPreview(t *testing.T) {
	ledger := &mockLedger{ImportTransactionsFunc: func(ctx context.Context, rows []domain.FlatTransaction) (domain.ImportOutcome, error) {
		return domain.ImportOutcome{}, errors.New("table locked")
	}}
	svc := NewService(newMockStore(), answer(modelAnswer), &mockFetcher{}, WithLedger(ledger))

	p, err := svc.Extract(context.Background(), domain.ExtractionRequest{BlobID: "gs://b/x.pdf", Import: true})

	require.NoError(t, err)
	assert.Len(t, p.Transactions, 2)
	require.Len(t, p.ImportSummary.Errors, 1)
	assert.True(t, strings.HasSuffix(p.ImportSummary.Errors[0], "table locked"))
}

func TestService_ExtractImportPublishesRefresh(t *testing.T) {
	ledger := &mockLedger{ImportTransactionsFunc: func(ctx context.Context, rows []domain.FlatTransaction) (domain.ImportOutcome, error) {
		return domain.ImportOutcome{Imported: len(rows)}, nil
	}}
	pub := &mockPublisher{}
	svc := NewService(newMockStore(), answer(modelAnswer), &mockFetcher{}, WithLedger(ledger), WithRefresh(pub))

	_, err := svc.Extract(context.Background(), domain.ExtractionRequest{BlobID: "gs://b/x.pdf", Import: true})

	require.NoError(t, err)
	require.Len(t, pub.published, 1)
	assert.Equal(t, "extraction_import", pub.published[0].Reason)
	assert.NotEmpty(t, pub.published[0].JobID)
}

func TestService_ExtractRefreshOnlyAfterSuccessfulImport(t *testing.T) {
	pub := &mockPublisher{}

	failing := &mockLedger{ImportTransactionsFunc: func(ctx context.Context, rows []domain.FlatTransaction) (domain.ImportOutcome, error) {
		return domain.ImportOutcome{}, errors.New("table locked")
	}}
	svc := NewService(newMockStore(), answer(modelAnswer), &mockFetcher{}, WithLedger(failing), WithRefresh(pub))
	_, err := svc.Extract(context.Background(), domain.ExtractionRequest{BlobID: "gs://b/x.pdf", Import: true})
	require.NoError(t, err)
	assert.Empty(t, pub.published, "a failed import does not refresh")

	svc = NewService(newMockStore(), answer(modelAnswer), &mockFetcher{}, WithRefresh(pub))
	_, err = svc.Extract(context.Background(), domain.ExtractionRequest{BlobID: "gs://b/x.pdf"})
	require.NoError(t, err)
	assert.Empty(t, pub.published, "no import, no refresh")
}

func TestService_ExtractRefreshFailureKeepsSummary(t *testing.T) {
	ledger := &mockLedger{ImportTransactionsFunc: func(ctx context.Context, rows []domain.FlatTransaction) (domain.ImportOutcome, error) {
		return domain.ImportOutcome{Imported: len(rows)}, nil
	}}
	pub := &mockPublisher{err: errors.New("queue closed")}
	svc := NewService(newMockStore(), answer(modelAnswer), &mockFetcher{}, WithLedger(ledger), WithRefresh(pub))

	p, err := svc.Extract(context.Background(), domain.ExtractionRequest{BlobID: "gs://b/x.pdf", Import: true})

	require.NoError(t, err)
	assert.Equal(t, "Imported 2, skipped 0", p.ImportSummary.Summary())
	assert.Len(t, pub.published, 1)
}
