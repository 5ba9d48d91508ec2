package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/dvloznov/statement-review/internal/blobstore"
	"github.com/dvloznov/statement-review/internal/config"
	"github.com/dvloznov/statement-review/internal/domain"
	"github.com/dvloznov/statement-review/internal/ledgerclient"
	"github.com/dvloznov/statement-review/internal/logger"
	"github.com/dvloznov/statement-review/internal/review"
	pkgconfig "github.com/dvloznov/statement-review/pkg/config"
)

// loadConfig reads the optional config file and applies the flag overrides
// shared by every command.
func loadConfig(ctx context.Context, cmd *cli.Command) (context.Context, *config.Config, error) {
	cfg := config.NewDefault()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return ctx, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if v := cmd.String("backend"); v != "" {
		cfg.Review.BackendURL = v
	}
	if v := cmd.String("token"); v != "" {
		cfg.Review.Token = v
	}
	if v := cmd.String("account"); v != "" {
		cfg.Review.ExpectedAccount = v
	}
	if v := cmd.String("txid-prefix"); v != "" {
		cfg.Review.TxidPrefix = v
	}

	log := logger.New(cmd.String("log-level"))
	return logger.WithContext(ctx, log), cfg, nil
}

func newSession(cfg *config.Config) *review.Session {
	client := ledgerclient.New(cfg.Review.BackendURL, ledgerclient.WithToken(cfg.Review.Token))
	return review.NewSession(client,
		review.WithExpectedAccount(cfg.Review.ExpectedAccount),
		review.WithTxidPrefix(cfg.Review.TxidPrefix),
	)
}

func runUpload(ctx context.Context, cmd *cli.Command) error {
	ctx, cfg, err := loadConfig(ctx, cmd)
	if err != nil {
		return err
	}
	filePath := cmd.Args().First()
	if filePath == "" {
		return fmt.Errorf("upload: a file path is required")
	}
	bucket := cmd.String("bucket")
	if bucket == "" {
		bucket = cfg.GCP.Bucket
	}
	if bucket == "" {
		return fmt.Errorf("upload: no bucket configured (set gcp.bucket or --bucket)")
	}

	store, err := blobstore.NewGCS(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	object := blobstore.ObjectName(cfg.GCP.UploadPrefix, filepath.Base(filePath))
	uri, err := store.Upload(ctx, bucket, object, filePath)
	if err != nil {
		return err
	}

	log := logger.FromContext(ctx)
	log.Info().Str("gcs_uri", uri).Msg("Uploaded statement")
	fmt.Fprintln(cmd.Root().Writer, uri)
	return nil
}

func extractionRequest(cmd *cli.Command) (domain.ExtractionRequest, error) {
	req := domain.ExtractionRequest{
		BlobID:        cmd.String("blob"),
		DocID:         cmd.String("doc"),
		Model:         cmd.String("model"),
		PromptID:      cmd.String("prompt-id"),
		PromptVersion: cmd.String("prompt-version"),
		AssistantName: cmd.String("assistant"),
		Import:        cmd.Bool("import"),
	}
	if path := cmd.String("prompt-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return req, fmt.Errorf("reading prompt file: %w", err)
		}
		req.Prompt = string(data)
	}
	return req, nil
}

func runExtract(ctx context.Context, cmd *cli.Command) error {
	ctx, cfg, err := loadConfig(ctx, cmd)
	if err != nil {
		return err
	}
	req, err := extractionRequest(cmd)
	if err != nil {
		return err
	}

	session := newSession(cfg)
	if err := session.Extract(ctx, req); err != nil {
		return err
	}
	renderView(cmd.Root().Writer, session.Snapshot())
	return nil
}

func runRuns(ctx context.Context, cmd *cli.Command) error {
	ctx, cfg, err := loadConfig(ctx, cmd)
	if err != nil {
		return err
	}

	list, err := newSession(cfg).ListRuns(ctx, cmd.String("doc"))
	if err != nil {
		return err
	}
	renderRuns(cmd.Root().Writer, list)
	return nil
}

// loadSource fills the session from --run or, failing that, a new extraction
// of --blob. Neither flag leaves the draft empty.
func loadSource(ctx context.Context, cmd *cli.Command, session *review.Session) error {
	if runID := cmd.String("run"); runID != "" {
		return session.LoadRun(ctx, runID)
	}
	if cmd.String("blob") != "" {
		req, err := extractionRequest(cmd)
		if err != nil {
			return err
		}
		return session.Extract(ctx, req)
	}
	return nil
}

func runReview(ctx context.Context, cmd *cli.Command) error {
	ctx, cfg, err := loadConfig(ctx, cmd)
	if err != nil {
		return err
	}
	edits, err := parseEdits(cmd.StringSlice("patch"), cmd.StringSlice("confirm"), cmd.StringSlice("delete"))
	if err != nil {
		return err
	}

	session := newSession(cfg)
	if err := loadSource(ctx, cmd, session); err != nil {
		return err
	}
	if cmd.IsSet("opening") || cmd.IsSet("closing") {
		meta := session.Snapshot().Meta
		opening, closing := meta.OpeningBalance, meta.ClosingBalance
		if cmd.IsSet("opening") {
			opening = cmd.Float("opening")
		}
		if cmd.IsSet("closing") {
			closing = cmd.Float("closing")
		}
		session.SetBalances(opening, closing)
	}
	for i := 0; i < int(cmd.Int("add")); i++ {
		session.AddRow()
	}
	if err := edits.apply(session); err != nil {
		return err
	}

	return finish(ctx, cmd, session)
}

func runAppend(ctx context.Context, cmd *cli.Command) error {
	ctx, cfg, err := loadConfig(ctx, cmd)
	if err != nil {
		return err
	}
	text, err := readInput(cmd.String("file"), cmd.Root().Reader)
	if err != nil {
		return err
	}

	session := newSession(cfg)
	if err := loadSource(ctx, cmd, session); err != nil {
		return err
	}
	n, err := session.AppendBulk(text)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.Root().Writer, "Appended %d rows\n", n)

	return finish(ctx, cmd, session)
}

func runImport(ctx context.Context, cmd *cli.Command) error {
	ctx, cfg, err := loadConfig(ctx, cmd)
	if err != nil {
		return err
	}
	text, err := readInput(cmd.String("file"), cmd.Root().Reader)
	if err != nil {
		return err
	}

	session := newSession(cfg)
	if _, err := session.AppendBulk(text); err != nil {
		return err
	}
	outcome, err := session.ImportDraft(ctx)
	if err != nil {
		return err
	}
	session.WaitRefresh()
	renderOutcome(cmd.Root().Writer, outcome)
	return nil
}

// finish renders the session and runs the import the flags ask for.
func finish(ctx context.Context, cmd *cli.Command, session *review.Session) error {
	out := cmd.Root().Writer

	var (
		outcome domain.ImportOutcome
		err     error
	)
	switch {
	case cmd.Bool("import-draft"):
		outcome, err = session.ImportDraft(ctx)
	case cmd.Bool("import-extraction"):
		outcome, err = session.ImportExtraction(ctx)
	default:
		renderView(out, session.Snapshot())
		return nil
	}
	if err != nil {
		renderView(out, session.Snapshot())
		return err
	}
	session.WaitRefresh()
	renderView(out, session.Snapshot())
	renderOutcome(out, outcome)
	return nil
}

// readInput reads path, or r when path is "-".
func readInput(path string, r io.Reader) (string, error) {
	if path == "" {
		return "", fmt.Errorf("--file is required (use - for stdin)")
	}
	if path == "-" {
		data, err := io.ReadAll(r)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

func extractionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "blob", Usage: "Blob id: a gs:// URI or an object name in the configured bucket"},
		&cli.StringFlag{Name: "doc", Usage: "Document id (defaults to the blob file name)"},
		&cli.StringFlag{Name: "model", Usage: "Model name"},
		&cli.StringFlag{Name: "prompt-file", Usage: "File holding a custom extraction prompt"},
		&cli.StringFlag{Name: "prompt-id", Usage: "Prompt id recorded with the run"},
		&cli.StringFlag{Name: "prompt-version", Usage: "Prompt version recorded with the run"},
		&cli.StringFlag{Name: "assistant", Usage: "Assistant name prepended to the prompt"},
	}
}

func sourceFlags() []cli.Flag {
	return append(extractionFlags(),
		&cli.StringFlag{Name: "run", Usage: "Load a stored run instead of extracting"},
	)
}

func importFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "import-draft", Usage: "Import the edited draft rows"},
		&cli.BoolFlag{Name: "import-extraction", Usage: "Import the rows as extracted, ignoring edits"},
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "review",
		Usage: "Review extracted bank statements and import them into the ledger",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   "config/config.yaml",
				Sources: cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{Name: "backend", Usage: "Backend base URL", Sources: cli.EnvVars("REVIEW_BACKEND_URL")},
			&cli.StringFlag{Name: "token", Usage: "Backend bearer token", Sources: cli.EnvVars("REVIEW_TOKEN")},
			&cli.StringFlag{Name: "account", Usage: "Expected account id"},
			&cli.StringFlag{Name: "txid-prefix", Usage: "Expected txid prefix"},
			&cli.StringFlag{Name: "log-level", Value: "warn", Sources: cli.EnvVars("LOG_LEVEL")},
		},
		Commands: []*cli.Command{
			{
				Name:      "upload",
				Usage:     "Upload a statement PDF to GCS",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "bucket", Usage: "Bucket, overrides gcp.bucket", Sources: cli.EnvVars("GCS_BUCKET")},
				},
				Action: runUpload,
			},
			{
				Name:   "extract",
				Usage:  "Run an extraction and show the preview",
				Flags:  append(extractionFlags(), &cli.BoolFlag{Name: "import", Usage: "Import the extracted rows right away"}),
				Action: runExtract,
			},
			{
				Name:  "runs",
				Usage: "List a document's extraction runs, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "doc", Usage: "Document id", Required: true},
				},
				Action: runRuns,
			},
			{
				Name:  "review",
				Usage: "Load a run or extraction, apply edits and optionally import",
				Flags: slices.Concat(sourceFlags(), importFlags(), []cli.Flag{
					&cli.StringSliceFlag{Name: "patch", Usage: "Edit a row: INDEX:FIELD=VALUE"},
					&cli.StringSliceFlag{Name: "confirm", Usage: "Confirm (lock) a row by index"},
					&cli.StringSliceFlag{Name: "delete", Usage: "Delete a row by index"},
					&cli.IntFlag{Name: "add", Usage: "Append N blank rows before editing"},
					&cli.FloatFlag{Name: "opening", Usage: "Override the opening balance"},
					&cli.FloatFlag{Name: "closing", Usage: "Override the closing balance"},
				}),
				Action: runReview,
			},
			{
				Name:  "append",
				Usage: "Append pasted JSON or CSV rows to a run's draft",
				Flags: slices.Concat(sourceFlags(), importFlags(), []cli.Flag{
					&cli.StringFlag{Name: "file", Usage: "Input file, - for stdin"},
				}),
				Action: runAppend,
			},
			{
				Name:  "import",
				Usage: "Import JSON or CSV rows straight into the ledger",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Usage: "Input file, - for stdin"},
				},
				Action: runImport,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", strings.TrimSpace(err.Error()))
		os.Exit(1)
	}
}
