// Package main is the entry point for the Signal Explorer server.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fidde/signal_explorer/internal/api"
	"github.com/fidde/signal_explorer/internal/apm"
	"github.com/fidde/signal_explorer/internal/backend"
	"github.com/fidde/signal_explorer/internal/catalog"
	"github.com/fidde/signal_explorer/internal/catalog/clickhouse"
	"github.com/fidde/signal_explorer/internal/catalog/s3"
	"github.com/fidde/signal_explorer/internal/config"
	"github.com/fidde/signal_explorer/internal/kvstore"
)

func main() {
	log.Println("Starting Signal Explorer...")

	cfg, err := config.Load(getEnv("SIGEX_CONFIG", ""))
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if cfg.Auth.Enabled && cfg.Auth.Secret == "" {
		log.Fatal("Auth is enabled but no secret is configured")
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Logging.SlogLevel(),
	}))
	slog.SetDefault(logger)

	// Open the cache store backing the catalog
	store, err := kvstore.New(cfg.Cache, logger)
	if err != nil {
		log.Fatalf("Cache store error: %v", err)
	}

	manager := catalog.NewManager(store, logger)

	// Register catalog providers from configuration
	var providers []catalog.Provider
	for _, chCfg := range cfg.Catalog.ClickHouse {
		providers = append(providers, clickhouse.New(chCfg, logger))
		log.Printf("Registered ClickHouse catalog provider: %s (%s)", chCfg.Name, chCfg.Addr)
	}
	for _, s3Cfg := range cfg.Catalog.S3 {
		providers = append(providers, s3.New(s3Cfg, logger))
		log.Printf("Registered S3 catalog provider: %s (bucket %s)", s3Cfg.Name, s3Cfg.Bucket)
	}
	refresher := catalog.NewRefresher(manager, logger, providers...)

	// Query backends
	pplClient := backend.NewPPLClient(cfg.Backend, logger)
	promClient := backend.NewPromClient(cfg.Prometheus, logger)
	signals := apm.NewService(pplClient, promClient, logger)

	apiServer := api.NewServer(api.Options{
		Addr:             cfg.Server.Addr,
		Signals:          signals,
		Catalog:          manager,
		Refresher:        refresher,
		Tail:             pplClient,
		TailPollInterval: cfg.LiveTail.PollInterval,
		Auth: api.AuthConfig{
			Enabled: cfg.Auth.Enabled,
			Secret:  cfg.Auth.Secret,
			Issuer:  cfg.Auth.Issuer,
		},
		Logger: logger,
	})

	// Start pprof server for profiling (separate port)
	pprofAddr := getEnv("SIGEX_PPROF_ADDR", "localhost:6060")
	go func() {
		log.Printf("Starting pprof server on http://%s/debug/pprof", pprofAddr)
		if err := http.ListenAndServe(pprofAddr, nil); err != nil {
			log.Printf("pprof server error: %v", err)
		}
	}()

	errChan := make(chan error, 1)

	go func() {
		log.Printf("Starting API server on %s", cfg.Server.Addr)
		if err := apiServer.Start(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	log.Println("API endpoints:")
	log.Printf("  - APM: http://%s/api/v1/apm", cfg.Server.Addr)
	log.Printf("  - Catalog: http://%s/api/v1/catalog", cfg.Server.Addr)
	log.Printf("  - Live tail: ws://%s/api/v1/livetail", cfg.Server.Addr)
	log.Printf("  - Health: http://%s/health", cfg.Server.Addr)
	log.Printf("  - Metrics: http://%s/metrics", cfg.Server.Addr)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		log.Fatalf("Server error: %v", err)
	case sig := <-sigChan:
		log.Printf("Received signal: %v, shutting down...", sig)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Println("Shutting down server...")
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down API server: %v", err)
	}

	log.Println("Closing cache store...")
	if err := store.Close(); err != nil {
		log.Printf("Error closing cache store: %v", err)
	}

	log.Println("Shutdown complete")
}

// getEnv gets an environment variable with a default fallback.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
