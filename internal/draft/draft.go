// Package draft holds the editable working copy of an extracted batch.
package draft

import (
	"fmt"

	"github.com/dvloznov/statement-review/internal/domain"
	"github.com/dvloznov/statement-review/internal/normalize"
)

// Draft is a mutable copy of a preview's transactions with a parallel
// confirmation flag per row. len(rows) == len(confirmed) always holds.
// A confirmed row is locked: it cannot be patched or deleted until unconfirmed.
type Draft struct {
	rows      []domain.FlatTransaction
	confirmed []bool
}

// FromPreview derives a fresh draft from a preview. A nil preview yields an empty draft.
func FromPreview(p *domain.ExtractionPreview) *Draft {
	d := &Draft{}
	d.ResetToExtracted(p)
	return d
}

// ResetToExtracted discards all edits and reloads rows from the preview.
func (d *Draft) ResetToExtracted(p *domain.ExtractionPreview) {
	var src []domain.FlatTransaction
	if p != nil {
		src = p.Transactions
	}
	d.rows = domain.CloneAll(src)
	d.confirmed = make([]bool, len(d.rows))
}

// Clone returns an independent copy of the draft.
func (d *Draft) Clone() *Draft {
	return &Draft{rows: d.Rows(), confirmed: d.Confirmed()}
}

// Len returns the number of rows.
func (d *Draft) Len() int { return len(d.rows) }

// Rows returns a deep copy of the rows.
func (d *Draft) Rows() []domain.FlatTransaction { return domain.CloneAll(d.rows) }

// Row returns a copy of the row at i.
func (d *Draft) Row(i int) (domain.FlatTransaction, error) {
	if err := d.check(i); err != nil {
		return domain.FlatTransaction{}, err
	}
	return d.rows[i].Clone(), nil
}

// Confirmed returns a copy of the confirmation flags.
func (d *Draft) Confirmed() []bool {
	out := make([]bool, len(d.confirmed))
	copy(out, d.confirmed)
	return out
}

// IsConfirmed reports whether row i is locked. Out-of-range indexes are not confirmed.
func (d *Draft) IsConfirmed(i int) bool {
	return i >= 0 && i < len(d.confirmed) && d.confirmed[i]
}

// PatchRow merges the patch into row i and re-normalizes the result.
func (d *Draft) PatchRow(i int, p Patch) error {
	if err := d.check(i); err != nil {
		return err
	}
	if d.confirmed[i] {
		return fmt.Errorf("PatchRow: row %d: %w", i, domain.ErrRowConfirmed)
	}
	d.rows[i] = normalize.SanitizeTransaction(p.Apply(d.rows[i]))
	return nil
}

// AddRow appends a pending row built from defaults and returns its index.
func (d *Draft) AddRow(defaults domain.FlatTransaction) int {
	d.rows = append(d.rows, normalize.SanitizeTransaction(defaults))
	d.confirmed = append(d.confirmed, false)
	return len(d.rows) - 1
}

// AppendRows appends pending rows, e.g. from a bulk paste.
func (d *Draft) AppendRows(rows []domain.FlatTransaction) {
	for _, r := range rows {
		d.rows = append(d.rows, r.Clone())
		d.confirmed = append(d.confirmed, false)
	}
}

// DeleteRow removes row i and its flag. Confirmed rows are refused.
func (d *Draft) DeleteRow(i int) error {
	if err := d.check(i); err != nil {
		return err
	}
	if d.confirmed[i] {
		return fmt.Errorf("DeleteRow: row %d: %w", i, domain.ErrRowConfirmed)
	}
	d.rows = append(d.rows[:i], d.rows[i+1:]...)
	d.confirmed = append(d.confirmed[:i], d.confirmed[i+1:]...)
	return nil
}

// SetConfirmed sets the lock flag of row i unconditionally.
func (d *Draft) SetConfirmed(i int, v bool) error {
	if err := d.check(i); err != nil {
		return err
	}
	d.confirmed[i] = v
	return nil
}

// ConfirmedCount returns how many rows are locked.
func (d *Draft) ConfirmedCount() int {
	n := 0
	for _, c := range d.confirmed {
		if c {
			n++
		}
	}
	return n
}

func (d *Draft) check(i int) error {
	if i < 0 || i >= len(d.rows) {
		return fmt.Errorf("row %d of %d: %w", i, len(d.rows), domain.ErrIndexOutOfRange)
	}
	return nil
}
