// Package server exposes the transformation engine over HTTP so editor
// integrations and migration dashboards can submit statements without
// shelling out to the CLI.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/sayiza/orapgsync/internal/state"
	"github.com/sayiza/orapgsync/pkg/catalog"
)

// Server serves the transformation API.
type Server struct {
	catalog   *catalog.Metadata
	store     *state.Store // optional, nil disables run recording
	addr      string
	fragments []string
	logger    *slog.Logger
}

// Config holds the server dependencies.
type Config struct {
	Catalog *catalog.Metadata
	Store   *state.Store
	Addr    string
	// DateFragments feed the heuristic evaluator when the catalog is empty.
	DateFragments []string
	Logger        *slog.Logger
}

// New creates a server. Store may be nil when no snapshot is configured.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		catalog:   cfg.Catalog,
		store:     cfg.Store,
		addr:      cfg.Addr,
		fragments: cfg.DateFragments,
		logger:    logger,
	}
}

// Handler builds the HTTP routing tree.
func (s *Server) Handler() http.Handler {
	h := newHandlers(s.catalog, s.fragments, s.store, s.logger)

	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
	)
	r.Get("/healthz", h.Health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/transform", h.Transform)
		r.Post("/transform/view", h.TransformView)
		r.Get("/runs", h.ListRuns)
		r.Get("/runs/{id}", h.GetRun)
	})
	return r
}

// Serve starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting transform server", "addr", s.addr)

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down transform server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
