package commands

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// ApplyOptions holds the apply command flags.
type ApplyOptions struct {
	DryRun bool
}

// NewApplyCommand creates the apply command.
func NewApplyCommand() *cobra.Command {
	opts := &ApplyOptions{}

	cmd := &cobra.Command{
		Use:   "apply [files...]",
		Short: "Execute generated SQL files against PostgreSQL",
		Long: `Apply executes previously generated .sql files against the configured
PostgreSQL database. All files run inside one transaction; the first
failure rolls everything back.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the statements without executing them")

	return cmd
}

func runApply(cmd *cobra.Command, args []string, opts *ApplyOptions) error {
	ctx := cmd.Context()
	cfg, err := configFromContext(ctx)
	if err != nil {
		return err
	}
	logger := loggerFromContext(ctx)

	scripts := make([]string, 0, len(args))
	for _, file := range args {
		src, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		scripts = append(scripts, string(src))
	}

	if opts.DryRun {
		for i, script := range scripts {
			fmt.Fprintf(cmd.OutOrStdout(), "-- %s\n%s\n", args[i], script)
		}
		return nil
	}

	if cfg.PostgresDSN == "" {
		return fmt.Errorf("no PostgreSQL DSN configured (postgres_dsn)")
	}

	db, err := sql.Open("pgx", cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("open postgres connection: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}

	if err := applyScripts(ctx, db, args, scripts); err != nil {
		return err
	}
	logger.Info("applied", "files", len(args))
	return nil
}

func applyScripts(ctx context.Context, db *sql.DB, names, scripts []string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, script := range scripts {
		if _, err := tx.ExecContext(ctx, script); err != nil {
			return fmt.Errorf("apply %s: %w", names[i], err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
