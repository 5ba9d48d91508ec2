// Package bulk parses pasted text (a JSON list or delimited rows with a header)
// into sanitized transactions.
package bulk

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"

	"github.com/dvloznov/statement-review/internal/domain"
	"github.com/dvloznov/statement-review/internal/normalize"
)

// ParseBulk turns pasted text into transactions. Blank input yields an empty slice.
// A *domain.ParseError is returned when the header lacks required columns or when
// no row survives parsing.
func ParseBulk(text string) ([]domain.FlatTransaction, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return []domain.FlatTransaction{}, nil
	}

	// 1) Structured list of records.
	if items, ok := decodeList(trimmed); ok {
		txs := normalize.SanitizeAll(items)
		if len(txs) == 0 {
			return nil, &domain.ParseError{Reason: "no records with a txid found"}
		}
		return txs, nil
	}

	// 2) Delimited rows with a header line.
	return parseDelimited(trimmed)
}

// decodeList accepts a JSON array, or an object wrapping one under "transactions".
func decodeList(text string) ([]any, bool) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, false
	}
	switch val := v.(type) {
	case []any:
		return val, true
	case map[string]any:
		if list, ok := val["transactions"].([]any); ok {
			return list, true
		}
	}
	return nil, false
}

// parseDelimited reads one row per line. Quoting never spans lines, so an
// unbalanced quote only affects the line it is on.
func parseDelimited(text string) ([]domain.FlatTransaction, error) {
	lines := strings.Split(text, "\n")

	header := SplitLine(strings.TrimRight(lines[0], "\r"))
	if len(header) == 0 {
		return nil, &domain.ParseError{Reason: "empty header line"}
	}
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	if missing := missingColumns(header); len(missing) > 0 {
		return nil, &domain.ParseError{Missing: missing}
	}

	var txs []domain.FlatTransaction
	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := SplitLine(line)
		if len(fields) < len(header) {
			continue
		}

		rec := make(map[string]any, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			rec[col] = strings.TrimSpace(fields[i])
		}
		txs = append(txs, normalize.Sanitize(rec))
	}

	if len(txs) == 0 {
		return nil, &domain.ParseError{Reason: "no rows could be parsed"}
	}
	return txs, nil
}

func missingColumns(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var missing []string
	for _, col := range normalize.RequiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}

// SplitLine splits one delimited line, honouring double-quoted fields and the
// "" escape inside them. A stray quote is kept as text.
func SplitLine(line string) []string {
	fields, err := newReader(strings.NewReader(line)).Read()
	if err != nil {
		return []string{}
	}
	return fields
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	return cr
}
