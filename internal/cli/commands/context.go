// Package commands implements the orapgsync subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sayiza/orapgsync/internal/config"
	"github.com/sayiza/orapgsync/internal/loader"
	"github.com/sayiza/orapgsync/internal/state"
	"github.com/sayiza/orapgsync/pkg/catalog"
	"github.com/sayiza/orapgsync/pkg/infer"
	"github.com/sayiza/orapgsync/pkg/transform"
)

type configKey struct{}

type loggerKey struct{}

// WithConfig stores the resolved configuration in the context.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// WithLogger stores the logger in the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

func configFromContext(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*config.Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return cfg, nil
}

func loggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.New(slog.DiscardHandler)
}

// loadCatalog resolves the catalog to transform against: the YAML catalog
// file when configured, the snapshot otherwise, and an empty catalog with
// the configured default schema as a last resort.
func loadCatalog(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*catalog.Metadata, error) {
	if cfg.CatalogPath != "" {
		cat, err := loader.LoadCatalogFile(cfg.CatalogPath)
		if err != nil {
			return nil, err
		}
		logger.Debug("catalog loaded from file", "path", cfg.CatalogPath)
		return cat, nil
	}
	if cfg.SnapshotPath != "" {
		store, err := state.Open(cfg.SnapshotPath, logger)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		cat, err := store.LoadCatalog(ctx)
		if err != nil {
			return nil, err
		}
		logger.Debug("catalog loaded from snapshot", "path", cfg.SnapshotPath)
		return cat, nil
	}
	logger.Debug("no catalog configured, names resolve in the default schema only", "schema", cfg.Schema)
	return catalog.Empty(cfg.Schema), nil
}

// newGenerator builds a transform generator from the configuration.
func newGenerator(cat *catalog.Metadata, cfg *config.Config, logger *slog.Logger) *transform.Generator {
	eval := infer.NewHeuristicEvaluator(cfg.DateFragments...)
	return transform.New(cat, eval, transform.WithLogger(logger))
}
