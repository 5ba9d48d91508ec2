package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	Token string `yaml:"token"`
}

func (s *sample) Validate() error {
	if s.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_TOKEN", "s3cret")
	path := writeFile(t, "name: api\nport: 8080\ntoken: ${SAMPLE_TOKEN}\n")

	var cfg sample
	require.NoError(t, Load(path, &cfg))

	assert.Equal(t, sample{Name: "api", Port: 8080, Token: "s3cret"}, cfg)
}

func TestLoad_KeepsDefaultsForMissingKeys(t *testing.T) {
	path := writeFile(t, "port: 9000\n")

	cfg := sample{Name: "default"}
	require.NoError(t, Load(path, &cfg))

	assert.Equal(t, "default", cfg.Name)
	assert.Equal(t, 9000, cfg.Port)
}

func TestLoad_Errors(t *testing.T) {
	var cfg sample
	assert.ErrorContains(t, Load(filepath.Join(t.TempDir(), "missing.yaml"), &cfg), "failed to read")

	assert.ErrorContains(t, Load(writeFile(t, "port: [oops"), &cfg), "failed to parse")

	assert.ErrorContains(t, Load(writeFile(t, "name: x\n"), &cfg), "port is required")
}

func TestLoadOptional(t *testing.T) {
	cfg := sample{Port: 1}
	require.NoError(t, LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &cfg))
	assert.Equal(t, 1, cfg.Port)

	require.NoError(t, LoadOptional("", &cfg))

	empty := sample{}
	assert.Error(t, LoadOptional("", &empty))

	require.NoError(t, LoadOptional(writeFile(t, "port: 7\n"), &cfg))
	assert.Equal(t, 7, cfg.Port)
}
