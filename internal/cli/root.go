// Package cli provides the command-line interface for orapgsync.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sayiza/orapgsync/internal/cli/commands"
	"github.com/sayiza/orapgsync/internal/config"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "orapgsync",
		Short: "orapgsync - Oracle PL/SQL to PostgreSQL dialect transformer",
		Long: `orapgsync rewrites Oracle SQL and PL/SQL into PostgreSQL SQL and PL/pgSQL.

It resolves names against a catalog of table, view and package metadata,
rewrites Oracle-only constructs (outer join markers, NVL, DECODE, date
arithmetic, collections, package variables) and reports everything it
cannot rewrite as diagnostics instead of producing partial output.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			logger := cfg.Logger(os.Stderr)

			ctx := commands.WithConfig(cmd.Context(), cfg)
			ctx = commands.WithLogger(ctx, logger)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./orapgsync.yaml)")
	rootCmd.PersistentFlags().String("schema", "", "default schema for unqualified names and emitted helpers")
	rootCmd.PersistentFlags().String("catalog", "", "path to the YAML catalog file")
	rootCmd.PersistentFlags().String("snapshot", "", "path to the SQLite snapshot database")
	rootCmd.PersistentFlags().String("listen", "", "serve bind address")
	rootCmd.PersistentFlags().String("out-dir", "", "directory for generated .sql files")
	rootCmd.PersistentFlags().String("postgres-dsn", "", "PostgreSQL connection string for apply")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	rootCmd.AddCommand(commands.NewTransformCommand())
	rootCmd.AddCommand(commands.NewApplyCommand())
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewREPLCommand())
	rootCmd.AddCommand(commands.NewSnapshotCommand())
	rootCmd.AddCommand(commands.NewRunsCommand())
	rootCmd.AddCommand(commands.NewVersionCommand(Version))

	return rootCmd
}

// Execute runs the root command with signal-aware context cancellation.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
