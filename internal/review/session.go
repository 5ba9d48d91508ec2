// Package review ties the statement-review engine together: it owns one
// extraction preview, the editable draft derived from it, and the warnings and
// reconciliation recomputed after every change.
package review

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/statement-review/internal/bulk"
	"github.com/dvloznov/statement-review/internal/domain"
	"github.com/dvloznov/statement-review/internal/draft"
	"github.com/dvloznov/statement-review/internal/importer"
	"github.com/dvloznov/statement-review/internal/logger"
	"github.com/dvloznov/statement-review/internal/normalize"
	"github.com/dvloznov/statement-review/internal/reconcile"
	"github.com/dvloznov/statement-review/internal/runs"
	"github.com/dvloznov/statement-review/internal/validation"
)

// Extractor is the extraction collaborator.
type Extractor interface {
	Extract(ctx context.Context, req domain.ExtractionRequest) (*domain.ExtractionPreview, error)
}

// Backend bundles every collaborator a session talks to.
type Backend interface {
	Extractor
	runs.Source
	importer.Ledger
}

// Session is one reviewer's working state. Methods are safe for concurrent use;
// I/O runs without holding the lock and results are applied only if still current.
type Session struct {
	mu sync.Mutex

	extractor   Extractor
	selector    *runs.Selector
	coordinator *importer.Coordinator
	inFlight    *draft.InFlight

	preview *domain.ExtractionPreview
	draft   *draft.Draft
	meta    domain.InferredMeta

	expectedAccount string
	txidPrefix      string

	runs     []domain.RunSummary
	outcome  *domain.ImportOutcome
	warnings []string
	recon    reconcile.Result

	ops map[Op]*opSlot

	loadGen    uint64
	importSeq  uint64
	outcomeSeq uint64
}

// Option configures a Session.
type Option func(*Session)

// WithExpectedAccount pins the account rows are checked against instead of the
// statement's inferred account.
func WithExpectedAccount(id string) Option {
	return func(s *Session) { s.expectedAccount = id }
}

// WithTxidPrefix enables the txid prefix check.
func WithTxidPrefix(prefix string) Option {
	return func(s *Session) { s.txidPrefix = prefix }
}

// NewSession creates a session over a backend.
func NewSession(backend Backend, opts ...Option) *Session {
	inFlight := &draft.InFlight{}
	s := &Session{
		extractor:   backend,
		selector:    runs.NewSelector(backend),
		coordinator: importer.NewCoordinator(backend, inFlight),
		inFlight:    inFlight,
		draft:       draft.FromPreview(nil),
		ops:         make(map[Op]*opSlot, len(allOps)),
	}
	for _, op := range allOps {
		s.ops[op] = &opSlot{}
	}
	for _, opt := range opts {
		opt(s)
	}
	s.recompute()
	return s
}

// Extract runs a new extraction and, on success, replaces the draft. A result
// that arrives after a newer Extract or LoadRun is discarded with ErrStale; an
// import it embedded is still reported.
func (s *Session) Extract(ctx context.Context, req domain.ExtractionRequest) error {
	s.mu.Lock()
	gen := s.begin(OpExtract)
	load := s.beginLoad()
	seq := s.beginImport()
	s.mu.Unlock()

	preview, err := s.extractor.Extract(ctx, req)
	if err == nil && preview == nil {
		err = &domain.ExtractionError{Message: "empty extraction response"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.finish(OpExtract, gen, err)
	if err != nil {
		if !current {
			return ErrStale
		}
		return err
	}
	stale := !current || load != s.loadGen
	if !stale {
		s.load(preview)
	}
	if preview.ImportSummary != nil {
		s.recordOutcome(seq, *preview.ImportSummary)
	}
	if stale {
		return ErrStale
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("doc_id", req.DocID).
		Int("transactions", len(preview.Transactions)).
		Float64("confidence", preview.Confidence).
		Msg("Extraction loaded")
	return nil
}

// ListRuns fetches the document's run history.
func (s *Session) ListRuns(ctx context.Context, docID string) ([]domain.RunSummary, error) {
	s.mu.Lock()
	gen := s.begin(OpListRuns)
	s.mu.Unlock()

	list, err := s.selector.ListRuns(ctx, docID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finish(OpListRuns, gen, err) {
		return nil, ErrStale
	}
	if err != nil {
		return nil, err
	}
	s.runs = list
	return list, nil
}

// LoadRun replaces the preview and draft with a historical run.
func (s *Session) LoadRun(ctx context.Context, runID string) error {
	s.mu.Lock()
	gen := s.begin(OpLoadRun)
	load := s.beginLoad()
	s.mu.Unlock()

	preview, err := s.selector.LoadRun(ctx, runID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finish(OpLoadRun, gen, err) {
		return ErrStale
	}
	if err != nil {
		return err
	}
	if load != s.loadGen {
		return ErrStale
	}
	s.load(preview)
	return nil
}

// ImportDraft submits the current draft rows. The draft is not modified.
func (s *Session) ImportDraft(ctx context.Context) (domain.ImportOutcome, error) {
	s.mu.Lock()
	if s.inFlight.Has(importer.SourceDraft) {
		s.mu.Unlock()
		return domain.ImportOutcome{}, &domain.ImportError{Message: importer.ErrInFlight.Error(), Err: importer.ErrInFlight}
	}
	gen := s.begin(OpImportDraft)
	seq := s.beginImport()
	snapshot := s.draft.Clone()
	s.mu.Unlock()

	outcome, err := s.coordinator.ImportDraft(ctx, snapshot)
	return s.finishImport(OpImportDraft, gen, seq, outcome, err)
}

// ImportExtraction submits the preview's transactions as extracted.
func (s *Session) ImportExtraction(ctx context.Context) (domain.ImportOutcome, error) {
	s.mu.Lock()
	if s.inFlight.Has(importer.SourceExtraction) {
		s.mu.Unlock()
		return domain.ImportOutcome{}, &domain.ImportError{Message: importer.ErrInFlight.Error(), Err: importer.ErrInFlight}
	}
	gen := s.begin(OpImportExtraction)
	seq := s.beginImport()
	preview := s.preview
	s.mu.Unlock()

	outcome, err := s.coordinator.ImportExtraction(ctx, preview)
	return s.finishImport(OpImportExtraction, gen, seq, outcome, err)
}

// finishImport never drops a committed batch: a successful outcome is always
// returned, and shown unless a newer import has already reported.
func (s *Session) finishImport(op Op, gen, seq uint64, outcome domain.ImportOutcome, err error) (domain.ImportOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.finish(op, gen, err)
	if err != nil {
		if !current {
			return domain.ImportOutcome{}, ErrStale
		}
		return domain.ImportOutcome{}, err
	}
	s.recordOutcome(seq, outcome)
	return outcome, nil
}

// WaitRefresh blocks until post-import ledger refreshes have finished.
func (s *Session) WaitRefresh() {
	s.coordinator.Wait()
}

// AppendBulk parses pasted text and appends the rows as pending. A parse failure
// is recorded in the bulk slot and leaves the draft untouched.
func (s *Session) AppendBulk(text string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen := s.begin(OpBulk)
	rows, err := bulk.ParseBulk(text)
	s.finish(OpBulk, gen, err)
	if err != nil {
		return 0, err
	}
	s.draft.AppendRows(rows)
	s.recompute()
	return len(rows), nil
}

// PatchRow edits row i. Confirmed rows are refused with domain.ErrRowConfirmed.
func (s *Session) PatchRow(i int, p draft.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.draft.PatchRow(i, p); err != nil {
		return err
	}
	s.recompute()
	return nil
}

// AddRow appends a blank pending row on the statement's account and returns its index.
func (s *Session) AddRow() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.draft.AddRow(normalize.NewRow(s.accountLocked()))
	s.recompute()
	return i
}

// DeleteRow removes row i. Confirmed rows are refused with domain.ErrRowConfirmed.
func (s *Session) DeleteRow(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.draft.DeleteRow(i); err != nil {
		return err
	}
	s.recompute()
	return nil
}

// SetConfirmed locks or unlocks row i.
func (s *Session) SetConfirmed(i int, v bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.SetConfirmed(i, v)
}

// ResetToExtracted discards every edit and reloads the draft from the preview.
func (s *Session) ResetToExtracted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.ResetToExtracted(s.preview)
	if s.preview != nil {
		s.meta = s.preview.InferredMeta
	}
	s.recompute()
}

// SetBalances overrides the statement balances used for reconciliation.
func (s *Session) SetBalances(opening, closing float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta.OpeningBalance = opening
	s.meta.ClosingBalance = closing
	s.recompute()
}

// SetExpectations changes the account and txid prefix used by the warnings.
func (s *Session) SetExpectations(accountID, txidPrefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expectedAccount = accountID
	s.txidPrefix = txidPrefix
	s.recompute()
}

// load installs a new preview and derives a fresh draft. Caller holds the lock.
func (s *Session) load(p *domain.ExtractionPreview) {
	s.preview = p
	s.meta = p.InferredMeta
	s.draft.ResetToExtracted(p)
	s.outcome = nil
	s.recompute()
}

// recompute refreshes warnings and reconciliation. Caller holds the lock.
func (s *Session) recompute() {
	rows := s.draft.Rows()
	s.warnings = validation.ComputeWarnings(rows, s.accountLocked(), s.txidPrefix)
	s.recon = reconcile.Reconcile(rows, s.meta.OpeningBalance, s.meta.ClosingBalance)
}

func (s *Session) accountLocked() string {
	if s.expectedAccount != "" {
		return s.expectedAccount
	}
	if s.meta.AccountID != nil {
		return *s.meta.AccountID
	}
	return ""
}

// View is a read-only snapshot for rendering.
type View struct {
	Preview        *domain.ExtractionPreview
	Rows           []domain.FlatTransaction
	Confirmed      []bool
	Warnings       []string
	Reconciliation reconcile.Result
	Meta           domain.InferredMeta
	Runs           []domain.RunSummary
	Outcome        *domain.ImportOutcome
	Ops            map[Op]OpState
}

// OutcomeSummary renders the last import outcome, or "" when nothing was imported yet.
func (v View) OutcomeSummary() string {
	if v.Outcome == nil {
		return ""
	}
	return v.Outcome.Summary()
}

// Snapshot returns the current state.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	ops := make(map[Op]OpState, len(s.ops))
	for op, slot := range s.ops {
		ops[op] = slot.OpState
	}
	warnings := make([]string, len(s.warnings))
	copy(warnings, s.warnings)
	runsCopy := make([]domain.RunSummary, len(s.runs))
	copy(runsCopy, s.runs)

	v := View{
		Preview:        s.preview,
		Rows:           s.draft.Rows(),
		Confirmed:      s.draft.Confirmed(),
		Warnings:       warnings,
		Reconciliation: s.recon,
		Meta:           s.meta,
		Runs:           runsCopy,
		Ops:            ops,
	}
	if s.outcome != nil {
		o := *s.outcome
		v.Outcome = &o
	}
	return v
}

// String renders a compact one-line status, mainly for logs.
func (v View) String() string {
	_, _, net, expected, diff := v.Reconciliation.Floats()
	return fmt.Sprintf("rows=%d warnings=%d net=%.2f expected=%.2f diff=%.2f",
		len(v.Rows), len(v.Warnings), net, expected, diff)
}
