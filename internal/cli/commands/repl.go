package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/sayiza/orapgsync/pkg/plsql"
)

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactively transform statements",
		Long: `Repl reads Oracle SQL or PL/SQL from the terminal and prints the
PostgreSQL translation. Statements end with a semicolon; a lone slash
forces execution of the buffer, SQL*Plus style.`,
		Args: cobra.NoArgs,
		RunE: runREPL,
	}
}

func runREPL(cmd *cobra.Command, _ []string) error {
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
	gen := newGenerator(cat, cfg, logger)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "orapgsync> ",
		HistoryFile:     ".orapgsync_history",
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("initialize repl: %w", err)
	}
	defer func() { _ = rl.Close() }()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "orapgsync repl (schema: %s)\n", cat.DefaultSchema())
	_, _ = fmt.Fprintln(out, "End statements with ; or a lone / line. Type .quit to exit.")
	_, _ = fmt.Fprintln(out)

	var buffer strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buffer.Reset()
			rl.SetPrompt("orapgsync> ")
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}

		trimmed := strings.TrimSpace(line)
		switch trimmed {
		case "":
			continue
		case ".quit", ".exit":
			return nil
		}

		// A lone slash executes the accumulated buffer, one-liners ending
		// in a semicolon execute immediately. PL/SQL blocks contain inner
		// semicolons, so the semicolon shortcut only applies to an empty
		// buffer.
		execute := false
		switch {
		case trimmed == "/":
			execute = true
		case buffer.Len() == 0 && strings.HasSuffix(trimmed, ";") && !isBlockStart(trimmed):
			buffer.WriteString(trimmed)
			execute = true
		default:
			buffer.WriteString(line)
			buffer.WriteString("\n")
		}

		if !execute {
			rl.SetPrompt("      ...> ")
			continue
		}
		rl.SetPrompt("orapgsync> ")

		source := strings.TrimSpace(buffer.String())
		buffer.Reset()
		if source == "" {
			continue
		}

		stmt, err := plsql.Parse(source)
		if err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			continue
		}
		res := gen.Transform(stmt)
		if err := renderDiagnostics(cmd.ErrOrStderr(), "(repl)", res, "table"); err != nil {
			return err
		}
		if !res.HasErrors() {
			_, _ = fmt.Fprintln(out, res.SQL)
		}
		_, _ = fmt.Fprintln(out)
	}
}

// isBlockStart reports whether a line opens a multi-statement PL/SQL block.
func isBlockStart(line string) bool {
	first, _, _ := strings.Cut(strings.ToUpper(line), " ")
	switch first {
	case "DECLARE", "BEGIN", "CREATE":
		return true
	}
	return false
}
