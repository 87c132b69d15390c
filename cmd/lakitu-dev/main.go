// Command lakitu-dev serves the item API over HTTP for local development.
//
// Variables from a .env file in the working directory are loaded first.
// The store backend defaults to memory unless LAKITU_STORE_BACKEND is set.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"github.com/jacentio/lakitu/httpapi"
	"github.com/jacentio/lakitu/internal/backend"
	"github.com/jacentio/lakitu/internal/config"
	"github.com/jacentio/lakitu/internal/logging"
	"github.com/jacentio/lakitu/router"
)

func main() {
	if os.Getenv(config.Prefix+"STORE_BACKEND") == "" {
		_ = os.Setenv(config.Prefix+"STORE_BACKEND", config.BackendMemory)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open item store: %w", err)
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Error("close item store", zap.Error(err))
		}
	}()

	r := router.New(b.Store, router.Config{
		BasePath:       cfg.BasePath,
		AllowedOrigins: cfg.AllowedOrigins,
	}, logger)

	srv := httpapi.New(r, httpapi.Options{
		Addr:          cfg.DevAddr,
		SubjectHeader: cfg.DevSubjectHeader,
	}, logger)

	return srv.ListenAndServe(ctx)
}
