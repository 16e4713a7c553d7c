package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/compatdb/internal/config"
	"github.com/JonMunkholm/compatdb/internal/core"
	"github.com/JonMunkholm/compatdb/internal/logging"
	"github.com/JonMunkholm/compatdb/internal/storage/backend"
	"github.com/JonMunkholm/compatdb/internal/web"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	if err := run(cfg); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := backend.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()
	slog.Info("catalog store ready", "dialect", cfg.Database.Dialect)

	service := core.NewService(store, core.ServiceConfigFrom(cfg))
	server := web.NewServer(service, cfg)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		service.StartIndexRefresher(gctx, cfg.Search.RefreshInterval)
		return nil
	})

	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let in-flight imports finish their replace before the store closes
		imports := service.ImportLimiter()
		if active := imports.ActiveCount(); active > 0 {
			slog.Info("waiting for imports to complete", "active", active)
			if err := imports.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			}
		}

		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
