// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/modeltree/internal/api"
	"github.com/starford/modeltree/internal/journal"
	"github.com/starford/modeltree/internal/mcpserver"
	"github.com/starford/modeltree/internal/metrics"
	"github.com/starford/modeltree/internal/sse"
	"github.com/starford/modeltree/internal/storage"
	"github.com/starford/modeltree/internal/treeservice"
	"github.com/starford/modeltree/internal/watch"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", logOut: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	app.logger = slog.New(slog.NewJSONHandler(app.logOut, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(app.logger)
	return app, nil
}

// openTree builds the tree service with its journal. The returned cleanup
// closes the journal.
func (a *application) openTree(extra ...treeservice.Option) (*treeservice.Service, func(), error) {
	cfg := a.config
	cleanup := func() {}

	source, err := storage.NewFS(cfg.Models.Dir)
	if err != nil {
		return nil, cleanup, fmt.Errorf("init storage: %w", err)
	}
	a.modelsRoot = source.Root()

	opts := []treeservice.Option{treeservice.WithLogger(a.logger)}
	if cfg.Journal.Enabled {
		db, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, cleanup, fmt.Errorf("init journal: %w", err)
		}
		cleanup = func() { db.Close() }
		opts = append(opts, treeservice.WithJournal(db))
	}
	opts = append(opts, extra...)

	svc, err := treeservice.Open(source, cfg.Models.Root, opts...)
	if err != nil {
		cleanup()
		return nil, func() {}, fmt.Errorf("load models: %w", err)
	}
	return svc, cleanup, nil
}

// watchModels runs the directory watcher until ctx is done.
func (a *application) watchModels(ctx context.Context, svc *treeservice.Service) error {
	cfg := a.config.Models
	return watch.Watch(ctx, a.modelsRoot, cfg.Debounce, a.logger, func(kind, path string) {
		svc.SourceChanged(ctx, kind, path)
		if !cfg.AutoReload {
			return
		}
		if _, err := svc.Reload(ctx); err != nil {
			a.logger.Warn("auto reload failed", slog.String("path", path), slog.String("error", err.Error()))
		}
	})
}

// Run starts the HTTP application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("models_dir", cfg.Models.Dir),
		slog.String("journal_path", cfg.Journal.Path),
		slog.Bool("watch", cfg.Models.Watch),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(cfg.Events.TreeThrottle)
	defer broker.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		m.WatchClients(broker.ClientCount)
	}

	svc, cleanup, err := app.openTree(treeservice.WithPublisher(broker), treeservice.WithMetrics(m))
	if err != nil {
		return err
	}
	defer cleanup()

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if m != nil {
		r.Handle("/metrics", m.Handler())
	}

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Registered before any goroutine starts so an early signal is not lost.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	g, gCtx := errgroup.WithContext(ctx)
	// The watcher and the HTTP server both return nil on a clean stop, so
	// shutdown cancels the watcher explicitly.
	watchCtx, stopWatch := context.WithCancel(gCtx)
	defer stopWatch()

	if cfg.Models.Watch {
		g.Go(func() error {
			if err := app.watchModels(watchCtx, svc); err != nil {
				logger.Warn("watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		defer stopWatch()

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout. Logs must not go to stdout in
// this mode; callers pass WithLogOutput(os.Stderr).
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	svc, cleanup, err := app.openTree()
	if err != nil {
		return err
	}
	defer cleanup()

	srv := mcpserver.New(svc, app.version)

	g, gCtx := errgroup.WithContext(ctx)
	watchCtx, stopWatch := context.WithCancel(gCtx)
	defer stopWatch()

	if app.config.Models.Watch {
		g.Go(func() error {
			if err := app.watchModels(watchCtx, svc); err != nil {
				app.logger.Warn("watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}
	g.Go(func() error {
		defer stopWatch()
		app.logger.Info("MCP server listening on stdio")
		return srv.ServeStdio()
	})
	return g.Wait()
}

// LoadTree loads the configured model directory without starting any
// transport. The returned cleanup must be called when done.
func LoadTree(opts ...Option) (*treeservice.Service, func(), error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, func() {}, err
	}
	return app.openTree()
}
