// Package internal provides the long-running serve and mcp runtimes.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/mk12/zendown/internal/api"
	"github.com/mk12/zendown/internal/build"
	"github.com/mk12/zendown/internal/mcpserver"
	"github.com/mk12/zendown/internal/metrics"
	"github.com/mk12/zendown/internal/project"
	"github.com/mk12/zendown/internal/site"
	"github.com/mk12/zendown/internal/sse"
	"github.com/mk12/zendown/internal/watch"
)

var errProjectRequired = errors.New("project is required")

// reloadThrottle is the minimum gap between live-reload events.
const reloadThrottle = 500 * time.Millisecond

// Serve builds the html target, serves it with live reload, and rebuilds on
// file changes until ctx is cancelled or a signal arrives.
func Serve(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	p, logger := app.project, app.logger
	address := fmt.Sprintf(":%d", app.port)

	logger.Info("Configuration loaded",
		slog.String("project", p.Name()),
		slog.String("root", p.Root()),
		slog.String("http_address", address),
		slog.String("index_path", p.Config().Index.Path),
		slog.String("log_level", p.Config().LogLevel.String()))

	db, err := build.OpenIndex(p)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	reg := prom.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheusRecorder(reg)

	svc := site.NewService(p,
		build.Options{IgnoreErrors: true, LiveReload: true},
		site.WithIndex(db),
		site.WithRecorder(recorder))

	broker := sse.NewBroker(reloadThrottle)
	defer broker.Close()

	var ready atomic.Bool
	if _, err := svc.Build(ctx); err != nil {
		// Serve whatever was written so the author can fix it live.
		logger.Warn("initial build failed", slog.String("error", err.Error()))
	}
	ready.Store(true)

	httpServer := &http.Server{
		Addr:              address,
		Handler:           newRouter(svc, p, broker, reg, &ready),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", address))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher; each debounced batch rebuilds and notifies browsers.
	g.Go(func() error {
		w := watch.New(p.Root(), logger)
		return w.Run(gCtx, func(ctx context.Context, c watch.Change) error {
			res, err := svc.Rebuild(ctx, c)
			broker.PublishBuild(sse.BuildEvent{
				Target:   res.Target,
				Trigger:  c.Trigger(),
				Articles: res.Articles,
				Errors:   res.Errors,
				Failed:   err != nil,
			})
			return err
		})
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		ready.Store(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		// Stop the watcher too.
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

var errShutdown = errors.New("shutdown")

// newRouter assembles the preview server: health checks, metrics, the API,
// live-reload events, and the built html tree.
func newRouter(svc *site.Service, p *project.Project, broker *sse.Broker, reg *prom.Registry, ready *atomic.Bool) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if !ready.Load() {
			writeStatus(w, http.StatusServiceUnavailable, "starting")
			return
		}
		writeStatus(w, http.StatusOK, "ok")
	})

	r.Handle("/metrics", metrics.HTTPHandler(reg))

	// Mount API routes under /api; the SSE endpoint shares its auth.
	r.Mount("/api", api.NewRouter(svc, p.Config().Serve.Token, broker))

	// Everything else is the built site.
	static := http.FileServer(http.Dir(p.OutputDir("html")))
	r.Handle("/*", static)

	return r
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"status":%q}`, status)
}

// ServeMCP serves the MCP tools on stdin/stdout.
func ServeMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	db, err := build.OpenIndex(app.project)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	svc := site.NewService(app.project, build.Options{IgnoreErrors: true}, site.WithIndex(db))
	app.logger.Info("MCP server starting", slog.String("project", app.project.Name()))
	return mcpserver.New(svc, app.version).ServeStdio()
}
