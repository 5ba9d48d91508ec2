package main

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/bigquery"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/dvloznov/statement-review/internal/config"
	"github.com/dvloznov/statement-review/internal/logger"
	"github.com/dvloznov/statement-review/migrations"
	pkgconfig "github.com/dvloznov/statement-review/pkg/config"
)

func run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewDefault()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if v := cmd.String("project"); v != "" {
		cfg.GCP.ProjectID = v
	}
	if v := cmd.String("dataset"); v != "" {
		cfg.GCP.DatasetID = v
	}

	log := logger.New(cfg.App.LogLevel)

	projectID := cfg.GCP.ProjectID
	if projectID == "" {
		projectID = bigquery.DetectProjectID
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to create BigQuery client: %w", err)
	}
	defer client.Close()

	log.Info().
		Str("project", client.Project()).
		Str("dataset", cfg.GCP.DatasetID).
		Msg("Connected to BigQuery")

	all, err := readMigrations(migrations.BigQuery, "bigquery", client.Project(), cfg.GCP.DatasetID, log)
	if err != nil {
		return err
	}

	m := &migrator{
		client:    client,
		projectID: client.Project(),
		datasetID: cfg.GCP.DatasetID,
		appliedBy: cmd.String("applied-by"),
		log:       log,
	}
	n, err := m.run(ctx, all, cmd.Bool("dry-run"))
	if err != nil {
		return err
	}

	if n == 0 {
		log.Info().Msg("No new migrations to apply")
	} else {
		log.Info().Int("count", n).Msg("Migrations applied")
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "migrate",
		Usage:  "Create or upgrade the BigQuery tables",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   "config/config.yaml",
				Sources: cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{Name: "project", Usage: "GCP project ID, overrides gcp.project_id", Sources: cli.EnvVars("GCP_PROJECT")},
			&cli.StringFlag{Name: "dataset", Usage: "BigQuery dataset ID, overrides gcp.dataset_id"},
			&cli.StringFlag{Name: "applied-by", Usage: "Name recorded with each applied migration", Value: "migrate-cli"},
			&cli.BoolFlag{Name: "dry-run", Usage: "List pending migrations without applying them"},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log := logger.New("info")
		log.Error().Err(err).Msg("migrate failed")
		os.Exit(1)
	}
}
