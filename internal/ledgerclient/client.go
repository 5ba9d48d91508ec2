// Package ledgerclient talks to the backend's extraction, run-history and
// ledger endpoints over HTTP.
package ledgerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dvloznov/statement-review/internal/domain"
)

const maxErrorBody = 4096

// Client implements the review session's Backend over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sends a bearer token on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for the backend at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Extract asks the backend to run an extraction.
func (c *Client) Extract(ctx context.Context, req domain.ExtractionRequest) (*domain.ExtractionPreview, error) {
	var out domain.ExtractionPreview
	if status, msg, err := c.do(ctx, http.MethodPost, "/api/extractions", req, &out); err != nil || msg != "" {
		return nil, &domain.ExtractionError{Status: status, Message: msg, Err: err}
	}
	return &out, nil
}

// ListRuns lists a document's runs, newest first.
func (c *Client) ListRuns(ctx context.Context, docID string) ([]domain.RunSummary, error) {
	var out []domain.RunSummary
	path := "/api/documents/" + url.PathEscape(docID) + "/runs"
	if status, msg, err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil || msg != "" {
		return nil, &domain.ExtractionError{Status: status, Message: msg, Err: err}
	}
	return out, nil
}

// GetRun fetches a run with its raw response text.
func (c *Client) GetRun(ctx context.Context, runID string) (*domain.RunDetail, error) {
	var out domain.RunDetail
	status, msg, err := c.do(ctx, http.MethodGet, "/api/runs/"+url.PathEscape(runID), nil, &out)
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("GetRun: run %s: %w", runID, domain.ErrNotFound)
	}
	if err != nil || msg != "" {
		return nil, &domain.ExtractionError{Status: status, Message: msg, Err: err}
	}
	return &out, nil
}

// ImportTransactions submits a batch to the ledger.
func (c *Client) ImportTransactions(ctx context.Context, rows []domain.FlatTransaction) (domain.ImportOutcome, error) {
	if rows == nil {
		rows = []domain.FlatTransaction{}
	}
	var out domain.ImportOutcome
	if status, msg, err := c.do(ctx, http.MethodPost, "/api/ledger/import", rows, &out); err != nil || msg != "" {
		return domain.ImportOutcome{}, &domain.ImportError{Status: status, Message: msg, Err: err}
	}
	return out, nil
}

// RefreshIngestion asks the ledger to refetch its transactions.
func (c *Client) RefreshIngestion(ctx context.Context) error {
	if status, msg, err := c.do(ctx, http.MethodPost, "/api/ledger/refresh", nil, nil); err != nil || msg != "" {
		return &domain.ImportError{Status: status, Message: msg, Err: err}
	}
	return nil
}

// do performs one JSON round trip. A non-2xx response is reported through status
// and msg with err nil; transport and decoding failures come back as err.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (status int, msg string, err error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, "", fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, errorMessage(resp.StatusCode, raw), nil
	}

	if out == nil {
		return resp.StatusCode, "", nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, "", fmt.Errorf("decoding %s response: %w", path, err)
	}
	return resp.StatusCode, "", nil
}

// errorMessage pulls a human-readable message out of an error body: a JSON
// "error", "message" or "detail" field, else the trimmed text, else the status text.
func errorMessage(status int, raw []byte) string {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		for _, key := range []string{"error", "message", "detail"} {
			switch v := obj[key].(type) {
			case string:
				if v != "" {
					return v
				}
			case map[string]any:
				if m, ok := v["message"].(string); ok && m != "" {
					return m
				}
			}
		}
	}
	if text := strings.TrimSpace(string(raw)); text != "" {
		return text
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", status)
}
