// Package config loads the tool configuration from file, environment and
// flags. Precedence (highest to lowest): flags > env vars > config file >
// defaults.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config file names looked up in the working directory.
const (
	ConfigFileName    = "orapgsync.yaml"
	ConfigFileNameAlt = "orapgsync.yml"
)

// Default configuration values.
const (
	DefaultSchema   = "public"
	DefaultListen   = ":8645"
	DefaultLogLevel = "info"
	DefaultOutDir   = "out"
)

// Config is the resolved tool configuration.
type Config struct {
	// Schema is the schema unqualified Oracle names resolve in and the
	// schema generated helper functions are created in.
	Schema string `koanf:"schema"`
	// CatalogPath points at the YAML catalog file, empty for none.
	CatalogPath string `koanf:"catalog"`
	// SnapshotPath points at the SQLite snapshot database, empty for none.
	SnapshotPath string `koanf:"snapshot"`
	// DateFragments are column-name substrings treated as date evidence by
	// the heuristic evaluator. Empty means the built-in defaults.
	DateFragments []string `koanf:"date_fragments"`
	// PostgresDSN is the target connection string for apply.
	PostgresDSN string `koanf:"postgres_dsn"`
	// Listen is the serve command's bind address.
	Listen string `koanf:"listen"`
	// OutDir receives generated .sql files in batch mode.
	OutDir   string `koanf:"out_dir"`
	LogLevel string `koanf:"log_level"`
	Verbose  bool   `koanf:"verbose"`
}

// Load builds a Config from the given file (or the default file names when
// empty), ORAPGSYNC_ environment variables, and explicitly set flags.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"schema":    DefaultSchema,
		"listen":    DefaultListen,
		"log_level": DefaultLogLevel,
		"out_dir":   DefaultOutDir,
		"verbose":   false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if cfgFile = findConfigFile(cfgFile); cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// ORAPGSYNC_LOG_LEVEL -> log_level
	if err := k.Load(env.Provider("ORAPGSYNC_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "ORAPGSYNC_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook:       mapstructure.StringToSliceHookFunc(","),
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.PostgresDSN = expandEnvVars(cfg.PostgresDSN)
	return &cfg, nil
}

// findConfigFile returns the config file to use. Priority: explicit path >
// orapgsync.yaml > orapgsync.yml. Empty when none exists.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Logger builds a text slog.Logger honoring the configured level. Verbose
// forces debug.
func (c *Config) Logger(w *os.File) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if c.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} references with environment values, leaving
// unknown references as written.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}
