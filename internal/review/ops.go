package review

import (
	"errors"

	"github.com/dvloznov/statement-review/internal/domain"
)

// ErrStale is returned when a response arrives after a newer request of the
// same operation, or a newer draft load, was issued. The response is discarded.
var ErrStale = errors.New("stale response discarded")

// Op names an asynchronous operation with its own loading flag and error slot.
type Op string

const (
	OpExtract          Op = "extract"
	OpListRuns         Op = "list_runs"
	OpLoadRun          Op = "load_run"
	OpImportDraft      Op = "import_draft"
	OpImportExtraction Op = "import_extraction"
	OpBulk             Op = "bulk"
)

var allOps = []Op{OpExtract, OpListRuns, OpLoadRun, OpImportDraft, OpImportExtraction, OpBulk}

// OpState is the visible state of one operation.
type OpState struct {
	Loading bool
	Err     error
}

type opSlot struct {
	OpState
	gen uint64
}

// begin issues a new generation for op and marks it loading. Caller holds the lock.
func (s *Session) begin(op Op) uint64 {
	slot := s.ops[op]
	slot.gen++
	slot.Loading = true
	slot.Err = nil
	return slot.gen
}

// finish records the result of generation gen. It returns false when gen is no
// longer current. Caller holds the lock.
func (s *Session) finish(op Op, gen uint64, err error) bool {
	slot := s.ops[op]
	if slot.gen != gen {
		return false
	}
	slot.Loading = false
	slot.Err = err
	return true
}

// beginLoad issues a draft-source generation. Extract and LoadRun share it, so
// only the newest draft-replacing request may install its result. Caller holds the lock.
func (s *Session) beginLoad() uint64 {
	s.loadGen++
	return s.loadGen
}

// beginImport numbers an import so the displayed outcome follows the newest one.
// Caller holds the lock.
func (s *Session) beginImport() uint64 {
	s.importSeq++
	return s.importSeq
}

// recordOutcome shows outcome unless a newer import already reported. Caller holds the lock.
func (s *Session) recordOutcome(seq uint64, outcome domain.ImportOutcome) {
	if seq < s.outcomeSeq {
		return
	}
	s.outcomeSeq = seq
	s.outcome = &outcome
}
