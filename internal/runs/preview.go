package runs

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dvloznov/statement-review/internal/domain"
	"github.com/dvloznov/statement-review/internal/normalize"
)

// ParsePreview rebuilds an ExtractionPreview from a model's raw response text.
// The text may be wrapped in markdown fences and may be either the full preview
// object or a bare list of transactions.
func ParsePreview(raw string) (*domain.ExtractionPreview, error) {
	clean := cleanModelJSON(raw)
	if clean == "" {
		return nil, fmt.Errorf("ParsePreview: empty response")
	}

	var parsed any
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		return nil, fmt.Errorf("ParsePreview: unmarshal JSON: %w", err)
	}

	p := &domain.ExtractionPreview{
		Transactions: []domain.FlatTransaction{},
		Audit:        emptyAudit(),
	}

	switch v := parsed.(type) {
	case []any:
		p.Transactions = normalize.SanitizeAll(v)
		return p, nil
	case map[string]any:
		return fillPreview(p, v)
	default:
		return nil, fmt.Errorf("ParsePreview: top-level value is %T, want object or array", parsed)
	}
}

func fillPreview(p *domain.ExtractionPreview, obj map[string]any) (*domain.ExtractionPreview, error) {
	if txAny, ok := obj["transactions"]; ok && txAny != nil {
		txs, ok := txAny.([]any)
		if !ok {
			return nil, fmt.Errorf("fillPreview: 'transactions' is %T, want []interface{}", txAny)
		}
		p.Transactions = normalize.SanitizeAll(txs)
	}

	if auditAny, ok := obj["audit"].(map[string]any); ok {
		p.Audit.Issues = rawEntries(auditAny["issues"])
		p.Audit.Assumptions = rawEntries(auditAny["assumptions"])
		p.Audit.SkippedLines = rawEntries(auditAny["skipped_lines"])
	}

	if meta, ok := obj["inferred_meta"].(map[string]any); ok {
		p.InferredMeta.OpeningBalance = number(meta["opening_balance"])
		p.InferredMeta.ClosingBalance = number(meta["closing_balance"])
		if acct, ok := meta["account_id"].(string); ok && strings.TrimSpace(acct) != "" {
			a := strings.TrimSpace(acct)
			p.InferredMeta.AccountID = &a
		}
	}

	if q, ok := obj["quality"].(string); ok {
		p.Quality = q
	}
	p.Confidence = clamp01(number(obj["confidence"]))

	if sumAny, ok := obj["import_summary"].(map[string]any); ok {
		s := &domain.ImportOutcome{
			Imported: int(number(sumAny["imported"])),
			Skipped:  int(number(sumAny["skipped"])),
			Errors:   []string{},
		}
		if errs, ok := sumAny["errors"].([]any); ok {
			for _, e := range errs {
				s.Errors = append(s.Errors, fmt.Sprint(e))
			}
		}
		p.ImportSummary = s
	}

	return p, nil
}

func emptyAudit() domain.Audit {
	return domain.Audit{
		Issues:       []json.RawMessage{},
		Assumptions:  []json.RawMessage{},
		SkippedLines: []json.RawMessage{},
	}
}

// rawEntries re-encodes each element of a list; a single non-list value becomes one entry.
func rawEntries(v any) []json.RawMessage {
	out := []json.RawMessage{}
	if v == nil {
		return out
	}
	list, ok := v.([]any)
	if !ok {
		list = []any{v}
	}
	for _, item := range list {
		b, err := json.Marshal(item)
		if err != nil {
			continue
		}
		out = append(out, b)
	}
	return out
}

func number(v any) float64 {
	if v == nil {
		return 0
	}
	f, _ := normalize.ToFloat(v)
	return f
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

// cleanModelJSON strips markdown fences and any chatter around the JSON value.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return strings.Trim(s, "`")
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// Keep only the outermost object or array.
	open := strings.IndexAny(s, "{[")
	if open == -1 {
		return s
	}
	closeCh := "}"
	if s[open] == '[' {
		closeCh = "]"
	}
	if end := strings.LastIndex(s, closeCh); end > open {
		s = s[open : end+1]
	}
	return strings.TrimSpace(s)
}
