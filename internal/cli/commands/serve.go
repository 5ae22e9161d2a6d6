package commands

import (
	"github.com/spf13/cobra"

	"github.com/sayiza/orapgsync/internal/server"
	"github.com/sayiza/orapgsync/internal/state"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the transformation API over HTTP",
		Long: `Serve starts an HTTP server exposing the transformation engine. POST
/v1/transform with a JSON body {"source": "..."} returns the generated
SQL and diagnostics. When a snapshot is configured, runs submitted with a
label are recorded and browsable under /v1/runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}
			logger := loggerFromContext(ctx)

			cat, err := loadCatalog(ctx, cfg, logger)
			if err != nil {
				return err
			}

			var store *state.Store
			if cfg.SnapshotPath != "" {
				store, err = state.Open(cfg.SnapshotPath, logger)
				if err != nil {
					return err
				}
				defer store.Close()
			}

			srv := server.New(server.Config{
				Catalog:       cat,
				Store:         store,
				Addr:          cfg.Listen,
				DateFragments: cfg.DateFragments,
				Logger:        logger,
			})
			return srv.Serve(ctx)
		},
	}

	return cmd
}
