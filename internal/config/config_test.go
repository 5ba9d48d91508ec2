package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgconfig "github.com/dvloznov/statement-review/pkg/config"
)

func TestNewDefault_IsValid(t *testing.T) {
	cfg := NewDefault()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.App.HTTP.Address())
	assert.False(t, cfg.Notion.Enabled())
	assert.Empty(t, cfg.Auth.BearerToken())
}

func TestLoad_OverDefaults(t *testing.T) {
	t.Setenv("NOTION_TOKEN", "ntn_abc")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  log_level: debug
gcp:
  project_id: books-prod
  dataset_id: ledger_v2
  bucket: statements-prod
notion:
  token: ${NOTION_TOKEN}
  database_id: db123
auth:
  mode: token
  token: hunter2
jobs:
  backoff: 5s
`), 0o600))

	cfg := NewDefault()
	require.NoError(t, pkgconfig.Load(path, cfg))

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, 8080, cfg.App.HTTP.Port)
	assert.Equal(t, "ledger_v2", cfg.GCP.DatasetID)
	assert.Equal(t, "statements", cfg.GCP.UploadPrefix)
	assert.True(t, cfg.Notion.Enabled())
	assert.Equal(t, "ntn_abc", cfg.Notion.Token)
	assert.Equal(t, "hunter2", cfg.Auth.BearerToken())
	assert.Equal(t, 5*time.Second, cfg.Jobs.Backoff)
	assert.Equal(t, 2, cfg.Jobs.Workers)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.App.HTTP.Port = 70000 }, "app"},
		{"bad log level", func(c *Config) { c.App.LogLevel = "loud" }, "LogLevel"},
		{"dataset required", func(c *Config) { c.GCP.DatasetID = "" }, "DatasetID"},
		{"dataset charset", func(c *Config) { c.GCP.DatasetID = "my-dataset" }, "DatasetID"},
		{"notion half configured", func(c *Config) { c.Notion.Token = "t" }, "DatabaseID"},
		{"token mode needs token", func(c *Config) { c.Auth.Mode = AuthModeToken }, "Token"},
		{"unknown auth mode", func(c *Config) { c.Auth.Mode = "oauth" }, "Mode"},
		{"workers", func(c *Config) { c.Jobs.Workers = 100 }, "Workers"},
		{"backend url", func(c *Config) { c.Review.BackendURL = "not a url" }, "BackendURL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefault()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAuthConfig_EmptyModeIsDisabled(t *testing.T) {
	c := AuthConfig{Token: "ignored"}
	require.NoError(t, c.Validate())
	assert.Equal(t, AuthModeDisabled, c.Mode)
	assert.Empty(t, c.BearerToken())
}
