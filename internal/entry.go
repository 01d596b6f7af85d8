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
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/frontedit/internal/api"
	"github.com/starford/frontedit/internal/index"
	"github.com/starford/frontedit/internal/mcpserver"
	"github.com/starford/frontedit/internal/notice"
	"github.com/starford/frontedit/internal/session"
	"github.com/starford/frontedit/internal/sse"
	"github.com/starford/frontedit/internal/storage"
)

// workspace bundles what every entry point needs: the project files, the
// index and the schema rules.
type workspace struct {
	store *storage.FS
	db    *index.DB
	rules session.Resolver
}

func openWorkspace(cfg *Config, logger *slog.Logger) (*workspace, error) {
	// Ensure project directory exists.
	if err := os.MkdirAll(cfg.Project.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create project dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Project.Root)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	rules, err := cfg.Rules()
	if err != nil {
		return nil, fmt.Errorf("load schemas: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	if err := index.Sync(db, store, cfg.Project.Scope(), logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return &workspace{store: store, db: db, rules: rules}, nil
}

func newLogger(cfg *Config, out *os.File) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// Run starts the HTTP editor server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(cfg, os.Stdout)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("project_root", cfg.Project.Root),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Int("schemas", len(cfg.Schemas)),
		slog.String("log_level", cfg.App.LogLevel.String()))

	ws, err := openWorkspace(cfg, logger)
	if err != nil {
		return err
	}
	defer ws.db.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	notices := notice.New(
		notice.WithTTL(cfg.Editor.noticeTTL()),
		notice.WithPublish(func(n notice.Notice) {
			broker.Publish(sse.Event{Type: sse.TypeNotice, Data: n})
		}),
	)
	defer notices.Close()

	sessions := session.NewManager(ws.store,
		session.WithRules(ws.rules),
		session.WithNotifier(notices),
		session.WithLogger(logger),
		session.WithMaxSnapshots(cfg.Editor.MaxSnapshots),
		session.WithOnChange(func(v session.View) {
			broker.PublishSessionChange(v.ID, v)
		}),
		session.WithOnSaved(func(path string) {
			broker.PublishFileEvent("updated", path)
		}),
	)

	project := projectOf(cfg)
	svc := api.NewService(ws.db, sessions, project)
	if _, err := svc.TouchProject(ctx, project); err != nil {
		logger.Warn("record recent project failed", slog.String("error", err.Error()))
	}

	token := ""
	if cfg.Auth.AuthEnabled() {
		token = cfg.Auth.Token
	}
	apiRouter := api.NewRouter(svc, token, broker)

	// Build chi router.
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
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := svc.Ready(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	g.Go(func() error {
		err := index.Watch(gCtx, ws.db, ws.store, ws.store.Root(), cfg.Project.Scope(), logger, func(kind, path string) {
			broker.PublishFileEvent(kind, path)
		})
		if err != nil {
			logger.Warn("file watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
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

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr so they do
// not corrupt the protocol stream.
func RunMCP(_ context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	logger := newLogger(app.config, os.Stderr)

	ws, err := openWorkspace(app.config, logger)
	if err != nil {
		return err
	}
	defer ws.db.Close()

	logger.Info("MCP server starting", slog.String("project_root", app.config.Project.Root))
	return mcpserver.New(ws.store, ws.db, ws.rules).ServeStdio()
}

func projectOf(cfg *Config) index.Project {
	root := cfg.Project.Root
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return index.Project{
		Root:       root,
		ContentDir: cfg.Project.ContentDir,
		DataDir:    cfg.Project.DataDir,
	}
}
