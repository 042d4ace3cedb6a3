// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpAdapter "github.com/pulse-training/pulse-gw/pkg/adapters/http"
	"github.com/pulse-training/pulse-gw/pkg/bootstrap"
	"github.com/pulse-training/pulse-gw/pkg/core/config"
	"github.com/pulse-training/pulse-gw/pkg/observability/logging"
)

var (
	// Version is set via ldflags during build
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	port := flag.Int("port", 0, "HTTP port to listen on (overrides config)")
	version := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *version {
		fmt.Printf("PULSE Gateway Server\nVersion: %s\nBuild Time: %s\n", Version, BuildTime)
		os.Exit(0)
	}

	cfg, loadErr := config.Load(*configPath)
	if loadErr != nil {
		var err error
		cfg, err = config.FromEnv()
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
			os.Exit(1)
		}
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logger.Info("Starting PULSE Gateway Server",
		"version", Version,
		"build_time", BuildTime)
	if loadErr != nil {
		logger.Warn("Failed to load config file, using defaults and environment", "error", loadErr)
	}

	if *port != 0 {
		cfg.Server.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *logging.Logger) error {
	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := bootstrap.OpenStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close(context.Background())

	gw, err := bootstrap.NewGateway(ctx, cfg, stores, logger)
	if err != nil {
		return err
	}
	defer gw.Close()

	handler := httpAdapter.New(httpAdapter.Deps{
		Gateway:           gw.Gateway,
		Resolver:          gw.Resolver,
		Prompts:           stores.Prompts,
		Agents:            stores.Agents,
		Jobs:              stores.Jobs,
		Seeder:            gw.Seeder,
		Proxy:             gw.Proxy,
		SeedFile:          gw.SeedFile,
		AllowSeed:         cfg.Admin.AllowSeed,
		TrustProxyHeaders: cfg.Server.TrustProxyHeaders,
	}, logger)
	logger.Info("Initialized HTTP adapter",
		"edit_enabled", cfg.Admin.EditEnabled,
		"seed_enabled", cfg.Admin.AllowSeed,
		"proxy_enabled", gw.Proxy != nil)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
