package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sayiza/orapgsync/internal/state"
	"github.com/sayiza/orapgsync/pkg/plsql"
	"github.com/sayiza/orapgsync/pkg/transform"
)

// TransformOptions holds the transform command flags.
type TransformOptions struct {
	View   string
	Format string
	Record bool
	Watch  bool

	// outDir is resolved from the configuration at run time.
	outDir string
}

// NewTransformCommand creates the transform command.
func NewTransformCommand() *cobra.Command {
	opts := &TransformOptions{}

	cmd := &cobra.Command{
		Use:   "transform [files...]",
		Short: "Transform Oracle SQL and PL/SQL files to PostgreSQL",
		Long: `Transform reads Oracle SQL or PL/SQL from the given files, rewrites each
into PostgreSQL syntax and writes the result next to the input name under
the output directory. Files with error diagnostics produce no output.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransform(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.View, "view", "", "treat the single input as the defining SELECT of this view (schema.name)")
	cmd.Flags().StringVar(&opts.Format, "format", "table", "diagnostics format (table|json)")
	cmd.Flags().BoolVar(&opts.Record, "record", false, "record runs in the snapshot database")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "re-transform when an input file changes")

	return cmd
}

func runTransform(cmd *cobra.Command, args []string, opts *TransformOptions) error {
	ctx := cmd.Context()
	cfg, err := configFromContext(ctx)
	if err != nil {
		return err
	}
	logger := loggerFromContext(ctx)

	if opts.View != "" && len(args) != 1 {
		return fmt.Errorf("--view takes exactly one input file")
	}
	opts.outDir = cfg.OutDir
	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", opts.outDir, err)
	}

	cat, err := loadCatalog(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var store *state.Store
	if opts.Record {
		if cfg.SnapshotPath == "" {
			return fmt.Errorf("--record requires a snapshot path (--snapshot or config)")
		}
		store, err = state.Open(cfg.SnapshotPath, logger)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	b := &batch{
		gen:    newGenerator(cat, cfg, logger),
		opts:   opts,
		store:  store,
		logger: logger,
		cmd:    cmd,
	}

	if err := b.runAll(ctx, args); err != nil && !opts.Watch {
		return err
	}
	if opts.Watch {
		return b.watch(ctx, args)
	}
	return nil
}

// batch transforms a set of files against one generator.
type batch struct {
	gen    *transform.Generator
	opts   *TransformOptions
	store  *state.Store
	logger *slog.Logger
	cmd    *cobra.Command

	// mu serializes diagnostics output from concurrent file workers.
	mu sync.Mutex
}

func (b *batch) runAll(ctx context.Context, files []string) error {
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(4)
	failed := make([]bool, len(files))

	for i, file := range files {
		eg.Go(func() error {
			ok, err := b.runOne(egctx, file)
			if err != nil {
				return err
			}
			failed[i] = !ok
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	var n int
	for _, f := range failed {
		if f {
			n++
		}
	}
	if n > 0 {
		return fmt.Errorf("%d of %d files failed to transform", n, len(files))
	}
	return nil
}

// runOne transforms a single file. The bool result reports whether output
// was produced; hard errors (unreadable file, unparsable source) are
// returned as errors.
func (b *batch) runOne(ctx context.Context, file string) (bool, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", file, err)
	}

	var res *transform.Result
	if b.opts.View != "" {
		sel, err := plsql.ParseSelect(string(src))
		if err != nil {
			return false, fmt.Errorf("parse %s: %w", file, err)
		}
		schema, view := splitViewName(b.opts.View)
		res = b.gen.TransformView(schema, view, sel)
	} else {
		stmt, err := plsql.Parse(string(src))
		if err != nil {
			return false, fmt.Errorf("parse %s: %w", file, err)
		}
		res = b.gen.Transform(stmt)
	}

	if b.store != nil {
		if err := b.store.RecordRun(ctx, file, res); err != nil {
			b.logger.Warn("run recording failed", "file", file, "error", err)
		}
	}

	b.mu.Lock()
	rerr := renderDiagnostics(b.cmd.ErrOrStderr(), file, res, b.opts.Format)
	b.mu.Unlock()
	if rerr != nil {
		return false, rerr
	}

	if res.HasErrors() {
		b.logger.Error("transform failed", "file", file, "run_id", res.RunID)
		return false, nil
	}

	out := b.outputPath(file)
	if err := os.WriteFile(out, []byte(res.SQL+"\n"), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", out, err)
	}
	b.logger.Info("transformed", "file", file, "output", out, "run_id", res.RunID)
	return true, nil
}

func (b *batch) outputPath(file string) string {
	base := filepath.Base(file)
	ext := filepath.Ext(base)
	return filepath.Join(b.opts.outDir, strings.TrimSuffix(base, ext)+".sql")
}

// watch re-transforms inputs whenever they change, until the context is
// cancelled.
func (b *batch) watch(ctx context.Context, files []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Close()

	watched := make(map[string]bool, len(files))
	for _, file := range files {
		abs, err := filepath.Abs(file)
		if err != nil {
			return err
		}
		watched[abs] = true
		// Watch the directory: editors replace files on save, which drops
		// watches registered on the file itself.
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("watch %s: %w", file, err)
		}
	}
	b.logger.Info("watching for changes", "files", len(files))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !watched[abs] {
				continue
			}
			b.logger.Debug("file changed", "file", event.Name)
			if _, err := b.runOne(ctx, event.Name); err != nil {
				fmt.Fprintf(b.cmd.ErrOrStderr(), "Error: %v\n", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			b.logger.Warn("watch error", "error", err)
		}
	}
}

// splitViewName splits "schema.name" into its parts; a bare name gets an
// empty schema and resolves in the default schema.
func splitViewName(s string) (schema, name string) {
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return s[:i], s[i+1:]
	}
	return "", s
}
