// Package extraction runs a language model over a stored statement and turns
// its answer into an extraction preview.
package extraction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	bq "github.com/dvloznov/statement-review/internal/bigquery"
	"github.com/dvloznov/statement-review/internal/blobstore"
	"github.com/dvloznov/statement-review/internal/domain"
	"github.com/dvloznov/statement-review/internal/jobs"
	"github.com/dvloznov/statement-review/internal/logger"
	"github.com/dvloznov/statement-review/internal/runs"
)

// Service runs extractions.
type Service struct {
	store   RunStore
	model   Model
	blobs   Fetcher
	ledger  Ledger
	refresh RefreshPublisher

	bucket       string
	defaultModel string
}

// Option configures a Service.
type Option func(*Service)

// WithBucket sets the bucket bare blob ids are resolved in.
func WithBucket(bucket string) Option {
	return func(s *Service) { s.bucket = bucket }
}

// WithDefaultModel overrides DefaultModelName.
func WithDefaultModel(model string) Option {
	return func(s *Service) {
		if model != "" {
			s.defaultModel = model
		}
	}
}

// WithLedger enables import-on-extract.
func WithLedger(ledger Ledger) Option {
	return func(s *Service) { s.ledger = ledger }
}

// WithRefresh enqueues a ledger refresh after every successful import-on-extract.
func WithRefresh(p RefreshPublisher) Option {
	return func(s *Service) { s.refresh = p }
}

// NewService creates a Service.
func NewService(store RunStore, model Model, blobs Fetcher, opts ...Option) *Service {
	s := &Service{
		store:        store,
		model:        model,
		blobs:        blobs,
		defaultModel: DefaultModelName,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// state carries values between the steps of one extraction.
type state struct {
	req       domain.ExtractionRequest
	uri       string
	docID     string
	model     string
	runID     string
	pdf       []byte
	raw       string
	preview   *domain.ExtractionPreview
	createdAt time.Time
}

type step struct {
	name string
	run  func(ctx context.Context, st *state) error
}

// Extract resolves and fetches the document, asks the model, stores the raw
// answer against a new parsing run and returns the parsed preview. Once the run
// has started, any failure marks it FAILED.
func (s *Service) Extract(ctx context.Context, req domain.ExtractionRequest) (*domain.ExtractionPreview, error) {
	log := logger.FromContext(ctx)

	st := &state{req: req, createdAt: time.Now()}
	steps := []step{
		{"resolve", s.resolve},
		{"start run", s.startRun},
		{"fetch", s.fetch},
		{"generate", s.generate},
		{"store output", s.storeOutput},
		{"parse", s.parse},
		{"mark success", s.markSuccess},
	}

	for i, stp := range steps {
		if err := stp.run(ctx, st); err != nil {
			if st.runID != "" {
				s.store.MarkParsingRunFailed(ctx, st.runID, err)
			}
			log.Error().
				Err(err).
				Str("doc_id", st.docID).
				Str("run_id", st.runID).
				Str("step", stp.name).
				Msg("Extraction failed")
			return nil, fmt.Errorf("Extract: step %d (%s): %w", i+1, stp.name, err)
		}
	}

	if req.Import {
		s.importPreview(ctx, st)
	}

	log.Info().
		Str("doc_id", st.docID).
		Str("run_id", st.runID).
		Str("model", st.model).
		Int("transactions", len(st.preview.Transactions)).
		Float64("confidence", st.preview.Confidence).
		Msg("Extraction complete")

	return st.preview, nil
}

func (s *Service) resolve(_ context.Context, st *state) error {
	uri, err := blobstore.Resolve(st.req.BlobID, s.bucket)
	if err != nil {
		return err
	}
	st.uri = uri

	st.docID = strings.TrimSpace(st.req.DocID)
	if st.docID == "" {
		st.docID = blobstore.FilenameFromURI(uri)
	}

	st.model = strings.TrimSpace(st.req.Model)
	if st.model == "" {
		st.model = s.defaultModel
	}
	return nil
}

func (s *Service) startRun(ctx context.Context, st *state) error {
	runID, err := s.store.StartParsingRun(ctx, st.docID, st.model)
	if err != nil {
		return err
	}
	st.runID = runID
	return nil
}

func (s *Service) fetch(ctx context.Context, st *state) error {
	pdf, err := s.blobs.Fetch(ctx, st.uri)
	if err != nil {
		return err
	}
	st.pdf = pdf
	return nil
}

func (s *Service) generate(ctx context.Context, st *state) error {
	prompt, _, _ := promptFor(st.req)
	raw, err := s.model.Generate(ctx, st.model, prompt, st.pdf)
	if err != nil {
		return err
	}
	st.raw = raw
	return nil
}

func (s *Service) storeOutput(ctx context.Context, st *state) error {
	_, promptID, promptVersion := promptFor(st.req)
	return s.store.InsertModelOutput(ctx, &bq.ModelOutputRow{
		OutputID:      uuid.NewString(),
		ParsingRunID:  st.runID,
		DocumentID:    st.docID,
		ModelName:     st.model,
		PromptID:      nullable(promptID),
		PromptVersion: nullable(promptVersion),
		RawText:       st.raw,
		CreatedTS:     st.createdAt,
	})
}

func (s *Service) parse(_ context.Context, st *state) error {
	preview, err := runs.ParsePreview(st.raw)
	if err != nil {
		return err
	}
	st.preview = preview
	return nil
}

func (s *Service) markSuccess(ctx context.Context, st *state) error {
	return s.store.MarkParsingRunSucceeded(ctx, st.runID, st.preview.Quality, st.preview.Confidence)
}

// importPreview submits the extracted rows and embeds the outcome. An import
// failure does not fail the extraction; it is reported inside the summary.
func (s *Service) importPreview(ctx context.Context, st *state) {
	if s.ledger == nil {
		st.preview.ImportSummary = &domain.ImportOutcome{Errors: []string{"import is not configured"}}
		return
	}

	outcome, err := s.ledger.ImportTransactions(ctx, st.preview.Transactions)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().
			Err(err).
			Str("run_id", st.runID).
			Msg("Import after extraction failed")
		outcome = domain.ImportOutcome{Errors: []string{"import failed: " + err.Error()}}
	}
	if outcome.Errors == nil {
		outcome.Errors = []string{}
	}
	st.preview.ImportSummary = &outcome

	if err == nil {
		s.publishRefresh(ctx, st)
	}
}

// publishRefresh is best effort: the rows are already in the ledger.
func (s *Service) publishRefresh(ctx context.Context, st *state) {
	if s.refresh == nil {
		return
	}
	job := &jobs.RefreshLedgerJob{
		JobID:     uuid.NewString(),
		Reason:    "extraction_import",
		CreatedAt: time.Now(),
	}
	if err := s.refresh.PublishRefreshLedger(ctx, job); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().
			Err(err).
			Str("run_id", st.runID).
			Msg("Failed to enqueue ledger refresh")
	}
}

func nullable(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}
