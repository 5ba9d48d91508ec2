package ledgerclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dvloznov/statement-review/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Extract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/extractions", r.URL.Path)
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))

		var req domain.ExtractionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "blob-1", req.BlobID)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"transactions":[{"txid":"a","direction":"Credit","kind":"Fiat","ccy_or_asset":"USD","amount_or_qty":5}],"inferred_meta":{"opening_balance":1,"closing_balance":6},"quality":"ok","confidence":0.8}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", WithToken("s3cret"))
	p, err := c.Extract(context.Background(), domain.ExtractionRequest{BlobID: "blob-1"})

	require.NoError(t, err)
	require.Len(t, p.Transactions, 1)
	assert.Equal(t, domain.Credit, p.Transactions[0].Direction)
	assert.Equal(t, 6.0, p.InferredMeta.ClosingBalance)
}

func TestClient_ExtractServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"model quota exceeded"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Extract(context.Background(), domain.ExtractionRequest{})

	var ee *domain.ExtractionError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, http.StatusBadGateway, ee.Status)
	assert.Equal(t, "model quota exceeded", ee.Message)
}

func TestClient_ListRuns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/documents/doc%201/runs", r.URL.EscapedPath())
		_, _ = w.Write([]byte(`[{"run_id":"r2","created_at":"2024-05-02T00:00:00Z","status":"SUCCESS"},{"run_id":"r1","created_at":"2024-05-01T00:00:00Z","status":"FAILED"}]`))
	}))
	defer srv.Close()

	list, err := New(srv.URL).ListRuns(context.Background(), "doc 1")

	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "r2", list[0].RunID)
}

func TestClient_GetRunNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such run", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(srv.URL).GetRun(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClient_ImportTransactions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rows []domain.FlatTransaction
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rows))
		assert.Len(t, rows, 2)
		_, _ = w.Write([]byte(`{"imported":1,"skipped":1,"errors":[]}`))
	}))
	defer srv.Close()

	out, err := New(srv.URL).ImportTransactions(context.Background(), make([]domain.FlatTransaction, 2))

	require.NoError(t, err)
	assert.Equal(t, "Imported 1, skipped 1", out.Summary())
}

func TestClient_ImportErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"json error field", http.StatusBadRequest, `{"error":"bad rows"}`, "bad rows"},
		{"json message field", http.StatusConflict, `{"message":"locked"}`, "locked"},
		{"nested message", http.StatusUnprocessableEntity, `{"error":{"message":"nested"}}`, "nested"},
		{"plain text", http.StatusInternalServerError, "  upstream exploded \n", "upstream exploded"},
		{"empty body", http.StatusServiceUnavailable, "", "Service Unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL).ImportTransactions(context.Background(), nil)

			var ie *domain.ImportError
			require.True(t, errors.As(err, &ie))
			assert.Equal(t, tt.status, ie.Status)
			assert.Equal(t, tt.wantMsg, ie.Message)
		})
	}
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url).ImportTransactions(context.Background(), nil)

	var ie *domain.ImportError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, 0, ie.Status)
	assert.Error(t, ie.Err)
}

func TestClient_RefreshIngestion(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, "/api/ledger/refresh", r.URL.Path)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	require.NoError(t, New(srv.URL).RefreshIngestion(context.Background()))
	assert.True(t, called)
}
