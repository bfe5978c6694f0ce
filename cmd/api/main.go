package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/settleworks/recon-backend/internal/api"
	"github.com/settleworks/recon-backend/internal/domain/recon"
	"github.com/settleworks/recon-backend/internal/infrastructure/config"
	"github.com/settleworks/recon-backend/internal/infrastructure/logging"
	"github.com/settleworks/recon-backend/internal/infrastructure/storage"
)

func main() {
	var (
		configFile = flag.String("config", "", "Configuration file path")
		scope      = flag.String("scope", "", "Merchant scope served by this instance (required)")
		port       = flag.Int("port", 0, "HTTP port (0 = config default)")
	)
	flag.Parse()

	var cfg *config.Config
	if *configFile != "" {
		cfg = config.LoadOrEnvWithPath(*configFile)
	} else {
		cfg = config.LoadOrEnv()
	}
	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "api")

	if *scope == "" {
		logger.Error("A merchant scope is required (-scope)")
		os.Exit(1)
	}

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	thresholds := cfg.Matching.Thresholds()
	engine, err := recon.NewEngine(*scope, store, &thresholds, store, logger)
	if err != nil {
		logger.Error("Failed to construct engine", "error", err)
		os.Exit(1)
	}

	serverCfg := api.DefaultConfig()
	if cfg.API.Port > 0 {
		serverCfg.Port = cfg.API.Port
	}
	if *port > 0 {
		serverCfg.Port = *port
	}
	if len(cfg.API.AllowedOrigins) > 0 {
		serverCfg.AllowedOrigins = cfg.API.AllowedOrigins
	}
	if cfg.Batch.Workers > 0 {
		serverCfg.Workers = cfg.Batch.Workers
	}

	server := api.NewServer(serverCfg, engine, store, *scope, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown error", "error", err)
		}
	}
}
