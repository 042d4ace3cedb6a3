// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package bootstrap

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pulse-training/pulse-gw/pkg/configstore"
	"github.com/pulse-training/pulse-gw/pkg/core/apierr"
	"github.com/pulse-training/pulse-gw/pkg/core/config"
	"github.com/pulse-training/pulse-gw/pkg/observability/logging"
)

func TestOpenStores_Backends(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		storage config.StorageConfig
	}{
		{"memory", config.StorageConfig{Type: "memory"}},
		{"filesystem", config.StorageConfig{Type: "filesystem", BaseDir: filepath.Join(dir, "blobs")}},
		{"sqlite", config.StorageConfig{Type: "sqlite", DSN: filepath.Join(dir, "pulse.db")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Storage = tt.storage
			ctx := context.Background()

			stores, err := OpenStores(ctx, cfg, logging.Discard())
			if err != nil {
				t.Fatalf("OpenStores: %v", err)
			}
			defer stores.Close(ctx)

			p, err := stores.Prompts.PutNew(ctx, "greeting", configstore.PromptFields{
				Title:   "Greeting",
				Content: "Hello",
			}, "tester")
			if err != nil {
				t.Fatalf("PutNew: %v", err)
			}
			if p.Version != 1 {
				t.Errorf("version = %d, want 1", p.Version)
			}
		})
	}
}

func TestOpenStores_UnknownType(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Type = "tape"
	if _, err := OpenStores(context.Background(), cfg, logging.Discard()); err == nil {
		t.Fatal("expected error for unknown storage type")
	}
}

func TestNewGateway(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Audit.Sink = "memory"
	cfg.Admin.AllowSeed = true
	cfg.Proxy.BaseURL = "http://orchestrator.invalid"

	stores, err := OpenStores(ctx, cfg, logging.Discard())
	if err != nil {
		t.Fatalf("OpenStores: %v", err)
	}
	defer stores.Close(ctx)

	gw, err := NewGateway(ctx, cfg, stores, logging.Discard())
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	defer gw.Close()

	if gw.Gateway == nil || gw.Resolver == nil || gw.Seeder == nil {
		t.Fatalf("incomplete gateway: %+v", gw)
	}
	if gw.Proxy == nil {
		t.Error("expected proxy when a base URL is configured")
	}
	if gw.SeedFile == nil || len(gw.SeedFile.Prompts) == 0 {
		t.Error("expected the embedded default seed file")
	}
}

func TestCheckBackends(t *testing.T) {
	cfg := config.Default()
	if err := CheckBackends(cfg); err != nil {
		t.Fatalf("defaults: %v", err)
	}

	cfg.Audit.Sink = "carrier-pigeon"
	cfg.RateLimit.Store = "abacus"
	err := CheckBackends(cfg)
	if !errors.Is(err, apierr.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	for _, want := range []string{"carrier-pigeon", "abacus"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not name %q", err, want)
		}
	}
	if _, err := OpenStores(context.Background(), cfg, logging.Discard()); err == nil {
		t.Error("OpenStores should refuse unknown backends")
	}
}
