package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/sayiza/orapgsync/internal/state"
)

// NewRunsCommand creates the runs command group.
func NewRunsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Browse recorded transformation runs",
	}

	cmd.AddCommand(newRunsListCommand())
	cmd.AddCommand(newRunsShowCommand())

	return cmd
}

func openStore(cmd *cobra.Command) (*state.Store, error) {
	cfg, err := configFromContext(cmd.Context())
	if err != nil {
		return nil, err
	}
	if cfg.SnapshotPath == "" {
		return nil, fmt.Errorf("no snapshot path configured (--snapshot or config)")
	}
	return state.Open(cfg.SnapshotPath, loggerFromContext(cmd.Context()))
}

func newRunsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <source>",
		Short: "List runs recorded for a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "(no runs)")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Run ID", "Status", "Created"})
			for _, r := range runs {
				t.AppendRow(table.Row{r.ID, r.Status, r.CreatedAt.Format("2006-01-02 15:04:05")})
			}
			t.Render()
			return nil
		},
	}
}

func newRunsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run with its diagnostics and output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run:     %s\n", run.ID)
			fmt.Fprintf(out, "Source:  %s\n", run.Source)
			fmt.Fprintf(out, "Status:  %s\n", run.Status)
			fmt.Fprintf(out, "Created: %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
			for _, d := range run.Diagnostics {
				fmt.Fprintf(out, "  %s\n", d.String())
			}
			if run.SQL != "" {
				fmt.Fprintf(out, "\n%s\n", run.SQL)
			}
			return nil
		},
	}
}
