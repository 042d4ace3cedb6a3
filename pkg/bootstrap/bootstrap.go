// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package bootstrap builds the stores and gateway components from
// configuration. It is shared by the server and the admin CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pulse-training/pulse-gw/pkg/audit"
	"github.com/pulse-training/pulse-gw/pkg/auth"
	"github.com/pulse-training/pulse-gw/pkg/blobstore"
	_ "github.com/pulse-training/pulse-gw/pkg/blobstore/filesystem"
	_ "github.com/pulse-training/pulse-gw/pkg/blobstore/memory"
	_ "github.com/pulse-training/pulse-gw/pkg/blobstore/s3"
	_ "github.com/pulse-training/pulse-gw/pkg/blobstore/sqlstore"
	"github.com/pulse-training/pulse-gw/pkg/configstore"
	"github.com/pulse-training/pulse-gw/pkg/core/apierr"
	"github.com/pulse-training/pulse-gw/pkg/core/config"
	"github.com/pulse-training/pulse-gw/pkg/gateway"
	"github.com/pulse-training/pulse-gw/pkg/jobs"
	"github.com/pulse-training/pulse-gw/pkg/observability/logging"
	"github.com/pulse-training/pulse-gw/pkg/proxy"
	"github.com/pulse-training/pulse-gw/pkg/ratelimit"
	"github.com/pulse-training/pulse-gw/pkg/seed"
)

// Stores are the versioned document stores over one blob store.
type Stores struct {
	Blobs   blobstore.BlobStore
	Prompts *configstore.PromptStore
	Agents  *configstore.AgentStore
	Jobs    *jobs.Store
}

// CheckBackends reports configured backend names that no package has
// registered.
func CheckBackends(cfg *config.Config) error {
	var unknown []string
	if !blobstore.Providers.Has(cfg.Storage.Type) {
		unknown = append(unknown, fmt.Sprintf("storage.type %q (available: %v)", cfg.Storage.Type, blobstore.Providers.Available()))
	}
	if !audit.Sinks.Has(cfg.Audit.Sink) {
		unknown = append(unknown, fmt.Sprintf("audit.sink %q (available: %v)", cfg.Audit.Sink, audit.Sinks.Available()))
	}
	if !ratelimit.Counters.Has(cfg.RateLimit.Store) {
		unknown = append(unknown, fmt.Sprintf("rate_limit.store %q (available: %v)", cfg.RateLimit.Store, ratelimit.Counters.Available()))
	}
	if len(unknown) > 0 {
		return apierr.Configuration("unknown backends: %s", strings.Join(unknown, "; "))
	}
	return nil
}

// OpenStores opens the configured blob store and the stores built on it.
// All configured backend names are checked before anything is opened.
func OpenStores(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Stores, error) {
	if err := CheckBackends(cfg); err != nil {
		return nil, err
	}
	blobs, err := blobstore.Providers.New(ctx, cfg.Storage.Type, cfg.Storage.Params())
	if err != nil {
		return nil, fmt.Errorf("open %s blob store: %w", cfg.Storage.Type, err)
	}
	logger.Info("Initialized blob store", "type", cfg.Storage.Type)

	return &Stores{
		Blobs:   blobs,
		Prompts: configstore.NewPromptStore(blobs, logger.Component("prompts").Logger),
		Agents:  configstore.NewAgentStore(blobs, logger.Component("agents").Logger),
		Jobs:    jobs.NewStore(blobs, logger.Component("jobs").Logger),
	}, nil
}

// Close closes the blob store.
func (s *Stores) Close(ctx context.Context) error {
	return s.Blobs.Close(ctx)
}

// Gateway bundles the access components and what they own.
type Gateway struct {
	Gateway  *gateway.Gateway
	Resolver *auth.Resolver
	Limiter  *ratelimit.Limiter
	Recorder *audit.Recorder
	Proxy    *proxy.Forwarder // nil when no orchestrator is configured
	Seeder   *seed.Seeder
	SeedFile *seed.File // nil unless seeding is allowed
}

// NewGateway builds the rate limiter, audit recorder, identity resolver,
// proxy and gateway.
func NewGateway(ctx context.Context, cfg *config.Config, stores *Stores, logger *logging.Logger) (*Gateway, error) {
	counter, err := ratelimit.Counters.New(ctx, cfg.RateLimit.Store, cfg.RateLimit.StoreParams())
	if err != nil {
		return nil, fmt.Errorf("open %s rate limit store: %w", cfg.RateLimit.Store, err)
	}
	limiter := ratelimit.New(counter, cfg.RateLimit.LimiterRules())
	logger.Info("Initialized rate limiter", "store", cfg.RateLimit.Store)

	sink, err := audit.Sinks.New(ctx, cfg.Audit.Sink, cfg.Audit.Params())
	if err != nil {
		limiter.Close()
		return nil, fmt.Errorf("open %s audit sink: %w", cfg.Audit.Sink, err)
	}
	recorder := audit.NewRecorder(sink, logger.Component("audit").Logger)
	logger.Info("Initialized audit sink", "sink", cfg.Audit.Sink)

	g := &Gateway{
		Limiter:  limiter,
		Recorder: recorder,
		Resolver: auth.NewResolver(auth.Config{
			JWTSecret:    cfg.Auth.JWTSecret,
			Issuer:       cfg.Auth.Issuer,
			SharedSecret: cfg.Auth.SharedSecret,
			AdminRoles:   cfg.Auth.AdminRoles,
			DevMode:      cfg.Auth.DevMode,
		}, logger.Component("auth").Logger),
		Seeder: seed.New(stores.Prompts, stores.Agents, logger.Component("seed").Logger),
	}
	if cfg.Auth.DevMode && cfg.Auth.JWTSecret == "" && cfg.Auth.SharedSecret == "" {
		logger.Warn("No credentials configured: every request acts as " + auth.DevOperator)
	}

	if cfg.Proxy.Enabled() {
		fwd, err := proxy.New(proxy.Options{
			BaseURL:     cfg.Proxy.BaseURL,
			FunctionKey: cfg.Auth.SharedSecret,
			Timeout:     cfg.Proxy.Timeout,
		}, logger.Component("proxy").Logger)
		if err != nil {
			g.Close()
			return nil, err
		}
		g.Proxy = fwd
		logger.Info("Initialized orchestrator proxy", "base_url", cfg.Proxy.BaseURL)
	}

	if cfg.Admin.AllowSeed {
		f, err := seed.Load(cfg.Admin.SeedFile)
		if err != nil {
			g.Close()
			return nil, fmt.Errorf("load seed file: %w", err)
		}
		g.SeedFile = f
	}

	g.Gateway = gateway.New(gateway.Config{
		EditEnabled:         cfg.Admin.EditEnabled,
		AllowAnonymousProxy: cfg.Proxy.AllowAnonymous,
	}, limiter, recorder, logger.Component("gateway").Logger)
	return g, nil
}

// Close releases the rate limit store and the audit sink.
func (g *Gateway) Close() error {
	return errors.Join(g.Limiter.Close(), g.Recorder.Close())
}
