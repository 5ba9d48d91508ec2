// Package config defines the configuration shared by the api and cli commands.
package config

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config is the root configuration document.
type Config struct {
	App    AppConfig    `yaml:"app"`
	GCP    GCPConfig    `yaml:"gcp"`
	Model  ModelConfig  `yaml:"model"`
	Notion NotionConfig `yaml:"notion"`
	Auth   AuthConfig   `yaml:"auth"`
	Jobs   JobsConfig   `yaml:"jobs"`
	Review ReviewConfig `yaml:"review"`
}

// NewDefault returns a Config with every optional value filled in.
func NewDefault() *Config {
	return &Config{
		App: AppConfig{
			LogLevel: "info",
			HTTP:     HTTPConfig{Port: 8080},
		},
		GCP: GCPConfig{
			DatasetID:    "statements",
			UploadPrefix: "statements",
		},
		Model: ModelConfig{Name: "gemini-2.5-flash"},
		Auth:  AuthConfig{Mode: AuthModeDisabled},
		Jobs: JobsConfig{
			BufferSize:  100,
			Workers:     2,
			MaxRetries:  3,
			Backoff:     2 * time.Second,
			RefreshRows: 500,
		},
		Review: ReviewConfig{BackendURL: "http://localhost:8080"},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.GCP.Validate(); err != nil {
		return fmt.Errorf("gcp: %w", err)
	}
	if err := c.Notion.Validate(); err != nil {
		return fmt.Errorf("notion: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Jobs.Validate(); err != nil {
		return fmt.Errorf("jobs: %w", err)
	}
	if err := c.Review.Validate(); err != nil {
		return fmt.Errorf("review: %w", err)
	}
	return nil
}

// AppConfig holds process-level settings.
type AppConfig struct {
	LogLevel string     `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *AppConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogLevel, validation.In("trace", "debug", "info", "warn", "error")),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns the listen address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// GCPConfig locates the BigQuery dataset and the statement bucket. ProjectID
// may be left empty to use the credentials' project.
type GCPConfig struct {
	ProjectID    string `yaml:"project_id"`
	DatasetID    string `yaml:"dataset_id"`
	Bucket       string `yaml:"bucket"`
	UploadPrefix string `yaml:"upload_prefix"`
}

// Validate validates the GCP configuration.
func (c *GCPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DatasetID, validation.Required, validation.Match(datasetPattern)),
	)
}

// ModelConfig selects the default extraction model.
type ModelConfig struct {
	Name string `yaml:"name"`
}

// NotionConfig enables the ledger mirror. Both fields empty disables it.
type NotionConfig struct {
	Token      string `yaml:"token"`
	DatabaseID string `yaml:"database_id"`
}

// Enabled reports whether the mirror is configured.
func (c *NotionConfig) Enabled() bool {
	return c.Token != "" && c.DatabaseID != ""
}

// Validate validates the Notion configuration.
func (c *NotionConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DatabaseID, validation.When(c.Token != "", validation.Required)),
		validation.Field(&c.Token, validation.When(c.DatabaseID != "", validation.Required)),
	)
}

// AuthConfig holds bearer authentication settings.
//
// Mode is "disabled" (the default) or "token"; token mode requires Token.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
		validation.Field(&c.Token, validation.When(c.Mode == AuthModeToken, validation.Required)),
	)
}

// BearerToken returns the token the server should demand, or "" when auth is off.
func (c *AuthConfig) BearerToken() string {
	if c.Mode != AuthModeToken {
		return ""
	}
	return c.Token
}

// JobsConfig sizes the refresh job queue.
type JobsConfig struct {
	BufferSize  int           `yaml:"buffer_size"`
	Workers     int           `yaml:"workers"`
	MaxRetries  int           `yaml:"max_retries"`
	Backoff     time.Duration `yaml:"backoff"`
	RefreshRows int           `yaml:"refresh_rows"`
}

// Validate validates the jobs configuration.
func (c *JobsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BufferSize, validation.Min(1)),
		validation.Field(&c.Workers, validation.Min(1), validation.Max(64)),
		validation.Field(&c.MaxRetries, validation.Min(0), validation.Max(10)),
		validation.Field(&c.RefreshRows, validation.Min(0)),
	)
}

// ReviewConfig configures the reviewer's terminal client.
type ReviewConfig struct {
	BackendURL      string `yaml:"backend_url"`
	Token           string `yaml:"token"`
	ExpectedAccount string `yaml:"expected_account"`
	TxidPrefix      string `yaml:"txid_prefix"`
}

// Validate validates the review configuration.
func (c *ReviewConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BackendURL, validation.Required, is.URL),
	)
}
