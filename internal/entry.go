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

	"github.com/focosx/focos/internal/api"
	"github.com/focosx/focos/internal/canvas"
	"github.com/focosx/focos/internal/index"
	"github.com/focosx/focos/internal/mcpserver"
	"github.com/focosx/focos/internal/sse"
	"github.com/focosx/focos/internal/vault"
	"github.com/focosx/focos/internal/watcher"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("data_dir", cfg.Data.Dir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure data directory exists.
	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// Initialize SQLite index.
	db, err := index.Open(cfg.Data.IndexPath())
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	// Vault manager over the registry in the data directory.
	mgr, err := vault.NewManager(cfg.Data.Dir, db, logger)
	if err != nil {
		return fmt.Errorf("init vault manager: %w", err)
	}

	// Frame type registry with the builtin types.
	reg := canvas.NewRegistry()
	for _, b := range canvas.BuiltinBundles() {
		if err := reg.Register(b); err != nil {
			return fmt.Errorf("register frame type: %w", err)
		}
	}

	prefs := vault.NewPreferences(cfg.Data.Dir, logger)
	plugins := vault.NewPluginStore(cfg.Data.Dir, logger)

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)

	// Build API handler and router.
	h := api.NewHandler(mgr, db, reg, prefs, plugins, broker)
	apiRouter := api.NewRouter(h, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch every real vault root for external changes.
	// TODO: watch vaults registered at runtime without a restart.
	reload := func(ctx context.Context, vaultID string) {
		if err := mgr.ReloadVault(ctx, vaultID); err != nil {
			logger.Warn("vault reload failed",
				slog.String("vault_id", vaultID), slog.String("error", err.Error()))
			return
		}
		broker.PublishTreeChanged(vaultID)
	}
	for _, v := range mgr.RealVaults() {
		g.Go(func() error {
			if err := watcher.Watch(gCtx, v, logger, reload); err != nil {
				logger.Warn("watcher exited",
					slog.String("vault_id", v.ID), slog.String("error", err.Error()))
			}
			return nil
		})
	}

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

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		broker.Close()

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

// RunMCP starts the MCP stdio server. Logs go to stderr so stdout stays
// clean for the MCP transport.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	db, err := index.Open(cfg.Data.IndexPath())
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	mgr, err := vault.NewManager(cfg.Data.Dir, db, logger)
	if err != nil {
		return fmt.Errorf("init vault manager: %w", err)
	}

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(mgr, db).ServeStdio()
}
