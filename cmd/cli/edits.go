package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dvloznov/statement-review/internal/draft"
)

type rowPatch struct {
	index int
	patch draft.Patch
}

// edits are the row changes requested on the command line. Indexes refer to
// the draft as loaded: patches and confirmations run first, then deletions
// from the highest index down.
type edits struct {
	patches  []rowPatch
	confirms []int
	deletes  []int
}

// editor is the part of a review session edits are applied to.
type editor interface {
	PatchRow(i int, p draft.Patch) error
	SetConfirmed(i int, v bool) error
	DeleteRow(i int) error
}

func parseEdits(patches, confirms, deletes []string) (edits, error) {
	var e edits
	for _, expr := range patches {
		idx, rest, ok := strings.Cut(expr, ":")
		if !ok {
			return e, fmt.Errorf("--patch %q: want INDEX:FIELD=VALUE", expr)
		}
		i, err := parseIndex(idx)
		if err != nil {
			return e, fmt.Errorf("--patch %q: %w", expr, err)
		}
		p, err := draft.ParsePatch(rest)
		if err != nil {
			return e, fmt.Errorf("--patch %q: %w", expr, err)
		}
		e.patches = append(e.patches, rowPatch{index: i, patch: p})
	}
	for _, s := range confirms {
		i, err := parseIndex(s)
		if err != nil {
			return e, fmt.Errorf("--confirm: %w", err)
		}
		e.confirms = append(e.confirms, i)
	}
	for _, s := range deletes {
		i, err := parseIndex(s)
		if err != nil {
			return e, fmt.Errorf("--delete: %w", err)
		}
		e.deletes = append(e.deletes, i)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(e.deletes)))
	return e, nil
}

func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || i < 0 {
		return 0, fmt.Errorf("%q is not a row index", s)
	}
	return i, nil
}

func (e edits) apply(s editor) error {
	for _, p := range e.patches {
		if err := s.PatchRow(p.index, p.patch); err != nil {
			return fmt.Errorf("patch row %d: %w", p.index, err)
		}
	}
	for _, i := range e.confirms {
		if err := s.SetConfirmed(i, true); err != nil {
			return fmt.Errorf("confirm row %d: %w", i, err)
		}
	}
	for _, i := range e.deletes {
		if err := s.DeleteRow(i); err != nil {
			return fmt.Errorf("delete row %d: %w", i, err)
		}
	}
	return nil
}
