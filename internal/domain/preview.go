package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Audit carries the model's notes about an extraction. Entries are arbitrary JSON values.
type Audit struct {
	Issues       []json.RawMessage `json:"issues"`
	Assumptions  []json.RawMessage `json:"assumptions"`
	SkippedLines []json.RawMessage `json:"skipped_lines"`
}

// AuditText renders one audit entry: strings as-is, anything else as compact JSON.
func AuditText(entry json.RawMessage) string {
	var s string
	if err := json.Unmarshal(entry, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(entry))
}

// InferredMeta holds statement-level values the model read from the document.
type InferredMeta struct {
	OpeningBalance float64 `json:"opening_balance"`
	ClosingBalance float64 `json:"closing_balance"`
	AccountID      *string `json:"account_id,omitempty"`
}

// ExtractionPreview is the immutable result of one extraction run.
type ExtractionPreview struct {
	Transactions  []FlatTransaction `json:"transactions"`
	Audit         Audit             `json:"audit"`
	InferredMeta  InferredMeta      `json:"inferred_meta"`
	Quality       string            `json:"quality"`
	Confidence    float64           `json:"confidence"`
	ImportSummary *ImportOutcome    `json:"import_summary,omitempty"`
}

// InferredAccount returns the inferred account id or "" when none was found.
func (p *ExtractionPreview) InferredAccount() string {
	if p == nil || p.InferredMeta.AccountID == nil {
		return ""
	}
	return *p.InferredMeta.AccountID
}

// ExtractionRequest asks the backend to run the model over a stored document.
type ExtractionRequest struct {
	BlobID        string `json:"blob_id"`
	DocID         string `json:"doc_id"`
	Prompt        string `json:"prompt"`
	PromptID      string `json:"prompt_id"`
	PromptVersion string `json:"prompt_version"`
	Model         string `json:"model"`
	AssistantName string `json:"assistant_name"`
	Import        bool   `json:"import,omitempty"`
}

// RunSummary is one entry of a document's extraction history.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	CreatedAt  time.Time `json:"created_at"`
	Status     string    `json:"status"`
	Quality    *string   `json:"quality,omitempty"`
	Confidence *float64  `json:"confidence,omitempty"`
}

// RunDetail is a stored run including the model's raw response text.
type RunDetail struct {
	RunID       string    `json:"run_id"`
	DocID       string    `json:"doc_id"`
	Status      string    `json:"status"`
	Model       string    `json:"model,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	RawResponse string    `json:"raw_response"`
}

// ImportOutcome is the ledger's per-batch result.
type ImportOutcome struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

// Summary renders the outcome for display.
func (o ImportOutcome) Summary() string {
	s := fmt.Sprintf("Imported %d, skipped %d", o.Imported, o.Skipped)
	if n := len(o.Errors); n > 0 {
		s += fmt.Sprintf(", %d errors", n)
	}
	return s
}
