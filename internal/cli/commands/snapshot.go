package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sayiza/orapgsync/internal/loader"
	"github.com/sayiza/orapgsync/internal/state"
)

// NewSnapshotCommand creates the snapshot command group.
func NewSnapshotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage the catalog snapshot database",
	}

	cmd.AddCommand(newSnapshotImportCommand())
	cmd.AddCommand(newSnapshotShowCommand())

	return cmd
}

func newSnapshotImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Import the YAML catalog into the snapshot database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}
			logger := loggerFromContext(ctx)

			if cfg.CatalogPath == "" {
				return fmt.Errorf("no catalog file configured (--catalog or config)")
			}
			if cfg.SnapshotPath == "" {
				return fmt.Errorf("no snapshot path configured (--snapshot or config)")
			}

			cat, err := loader.LoadCatalogFile(cfg.CatalogPath)
			if err != nil {
				return err
			}

			store, err := state.Open(cfg.SnapshotPath, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.SaveCatalog(ctx, cat); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported catalog %s into %s (%d tables)\n",
				cfg.CatalogPath, cfg.SnapshotPath, len(cat.Tables()))
			return nil
		},
	}
}

func newSnapshotShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Summarize the stored catalog snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}
			logger := loggerFromContext(ctx)

			if cfg.SnapshotPath == "" {
				return fmt.Errorf("no snapshot path configured (--snapshot or config)")
			}

			store, err := state.Open(cfg.SnapshotPath, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			cat, err := store.LoadCatalog(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Default schema: %s\n", cat.DefaultSchema())
			fmt.Fprintf(out, "Tables:         %d\n", len(cat.Tables()))
			fmt.Fprintf(out, "Synonyms:       %d\n", len(cat.Synonyms()))
			fmt.Fprintf(out, "Pkg functions:  %d\n", len(cat.PackageFunctions()))
			fmt.Fprintf(out, "Pkg variables:  %d\n", len(cat.PackageVariables()))
			return nil
		},
	}
}
