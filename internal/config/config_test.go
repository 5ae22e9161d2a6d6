package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// A named but missing file is an error; no file at all is not.
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultSchema, cfg.Schema)
	assert.Equal(t, DefaultListen, cfg.Listen)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultOutDir, cfg.OutDir)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orapgsync.yaml")
	content := "schema: hr\ncatalog: catalog.yaml\ndate_fragments:\n  - expiry\n  - dob\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "hr", cfg.Schema)
	assert.Equal(t, "catalog.yaml", cfg.CatalogPath)
	assert.Equal(t, []string{"expiry", "dob"}, cfg.DateFragments)
	assert.Equal(t, DefaultListen, cfg.Listen)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orapgsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("schema: hr\n"), 0o644))
	t.Setenv("ORAPGSYNC_SCHEMA", "sales")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "sales", cfg.Schema)
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("ORAPGSYNC_SCHEMA", "sales")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("schema", "", "")
	flags.String("log-level", "", "")
	require.NoError(t, flags.Parse([]string{"--schema=finance", "--log-level=debug"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "finance", cfg.Schema)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestUnsetFlagsDoNotOverride(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("schema", "", "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, DefaultSchema, cfg.Schema)
}

func TestDSNEnvExpansion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orapgsync.yaml")
	content := "postgres_dsn: postgres://app:${PG_PASS}@db:5432/app\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("PG_PASS", "hunter2")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://app:hunter2@db:5432/app", cfg.PostgresDSN)
}

func TestLoggerLevels(t *testing.T) {
	cfg := &Config{LogLevel: "error"}
	require.NotNil(t, cfg.Logger(os.Stderr))

	cfg = &Config{LogLevel: "info", Verbose: true}
	logger := cfg.Logger(os.Stderr)
	assert.True(t, logger.Enabled(t.Context(), -4))
}
