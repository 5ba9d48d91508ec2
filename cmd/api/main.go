package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/dvloznov/statement-review/internal/api"
	"github.com/dvloznov/statement-review/internal/blobstore"
	"github.com/dvloznov/statement-review/internal/config"
	"github.com/dvloznov/statement-review/internal/extraction"
	infraBQ "github.com/dvloznov/statement-review/internal/infra/bigquery"
	"github.com/dvloznov/statement-review/internal/jobs"
	"github.com/dvloznov/statement-review/internal/jobs/inmemory"
	"github.com/dvloznov/statement-review/internal/logger"
	"github.com/dvloznov/statement-review/internal/notionsync"
	pkgconfig "github.com/dvloznov/statement-review/pkg/config"
)

const shutdownTimeout = 30 * time.Second

func run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewDefault()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if port := cmd.Int("port"); port != 0 {
		cfg.App.HTTP.Port = int(port)
	}

	log := logger.New(cfg.App.LogLevel)
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("http_address", cfg.App.HTTP.Address()).
		Str("dataset", cfg.GCP.DatasetID).
		Str("bucket", cfg.GCP.Bucket).
		Str("model", cfg.Model.Name).
		Bool("notion", cfg.Notion.Enabled()).
		Str("auth_mode", cfg.Auth.Mode).
		Msg("Configuration loaded")

	if cfg.GCP.Bucket == "" {
		log.Warn().Msg("No GCS bucket configured - blob ids must be full gs:// URIs")
	}

	repo, err := infraBQ.NewRepository(ctx, cfg.GCP.ProjectID, cfg.GCP.DatasetID)
	if err != nil {
		return fmt.Errorf("init bigquery: %w", err)
	}
	defer repo.Close()

	blobs, err := blobstore.NewGCS(ctx)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer blobs.Close()

	model, err := extraction.NewGemini(ctx)
	if err != nil {
		return fmt.Errorf("init model: %w", err)
	}

	// Ledger refresh jobs
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(inmemory.Config{
		BufferSize: cfg.Jobs.BufferSize,
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.MaxRetries,
		Backoff:    cfg.Jobs.Backoff,
	}, jobStore, log)

	svc := extraction.NewService(repo, model, blobs,
		extraction.WithBucket(cfg.GCP.Bucket),
		extraction.WithDefaultModel(cfg.Model.Name),
		extraction.WithLedger(repo),
		extraction.WithRefresh(jobQueue),
	)

	var notion notionsync.NotionService
	if cfg.Notion.Enabled() {
		notion = notionsync.NewNotionClient(cfg.Notion.Token)
	}
	refresher := notionsync.NewRefresher(repo, notion, cfg.Notion.DatabaseID, log)
	handler := func(ctx context.Context, job *jobs.RefreshLedgerJob) (int, error) {
		if job.Limit == 0 {
			job.Limit = cfg.Jobs.RefreshRows
		}
		return refresher.Handle(ctx, job)
	}

	router := api.NewRouter(api.Deps{
		Extractor: svc,
		Runs:      repo,
		Ledger:    repo,
		Publisher: jobQueue,
		Jobs:      jobStore,
		AuthToken: cfg.Auth.BearerToken(),
	}, log)

	server := &http.Server{
		Addr:         cfg.App.HTTP.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // extractions wait on the model
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	g, gCtx := errgroup.WithContext(ctx)

	if err := jobQueue.Start(gCtx, handler); err != nil {
		return fmt.Errorf("start job workers: %w", err)
	}

	g.Go(func() error {
		log.Info().Str("address", server.Addr).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return waitAndShutdown(gCtx, server, jobQueue, log)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Application error")
		return err
	}

	log.Info().Msg("Server exited")
	return nil
}

func waitAndShutdown(ctx context.Context, server *http.Server, queue *inmemory.Queue, log zerolog.Logger) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case <-ctx.Done():
		log.Info().Msg("Context cancelled, initiating shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	if err := queue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "statement-review-api",
		Usage:  "Backend for statement extraction, run history and ledger import",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   "config/config.yaml",
				Sources: cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.IntFlag{
				Name:    "port",
				Usage:   "HTTP port, overrides app.http.port",
				Sources: cli.EnvVars("PORT"),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log := logger.New("info")
		log.Error().Err(err).Msg("application error")
		os.Exit(1)
	}
}
