// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pulse-training/pulse-gw/pkg/auth"
	"github.com/pulse-training/pulse-gw/pkg/observability/logging"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := "storage:\n  type: sqlite\n  dsn: " + filepath.Join(dir, "pulse.db") + "\n" +
		"auth:\n  jwt_secret: cli-test-secret\n"
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSeedAndInspect(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "--config", cfg, "seed")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !strings.Contains(out, "prompts created: 7") || !strings.Contains(out, "agents written: 4") {
		t.Errorf("seed output:\n%s", out)
	}

	out, err = run(t, "--config", cfg, "seed")
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if !strings.Contains(out, "prompts created: 0") {
		t.Errorf("second seed should create nothing:\n%s", out)
	}

	out, err = run(t, "--config", cfg, "prompts", "list")
	if err != nil {
		t.Fatalf("prompts list: %v", err)
	}
	if !strings.Contains(out, "pulse-evaluator") || !strings.HasPrefix(out, "ID") {
		t.Errorf("prompts list output:\n%s", out)
	}

	out, err = run(t, "--config", cfg, "prompts", "show", "persona-thinker", "--version", "1")
	if err != nil {
		t.Fatalf("prompts show: %v", err)
	}
	if !strings.Contains(out, `"promptId": "persona-thinker"`) {
		t.Errorf("prompts show output:\n%s", out)
	}

	out, err = run(t, "--config", cfg, "prompts", "history", "persona-thinker")
	if err != nil {
		t.Fatalf("prompts history: %v", err)
	}
	if !strings.Contains(out, "seed-admin-data") {
		t.Errorf("prompts history output:\n%s", out)
	}

	out, err = run(t, "--config", cfg, "agents", "show")
	if err != nil {
		t.Fatalf("agents show: %v", err)
	}
	if !strings.Contains(out, `"id": "orchestrator"`) {
		t.Errorf("agents show output:\n%s", out)
	}
}

func TestPromptsShow_NotFound(t *testing.T) {
	cfg := writeConfig(t)
	if _, err := run(t, "--config", cfg, "prompts", "show", "missing"); err == nil {
		t.Fatal("expected error for missing prompt")
	}
}

func TestTokenIssue(t *testing.T) {
	cfg := writeConfig(t)
	out, err := run(t, "--config", cfg, "token", "issue", "alice", "--role", "admin", "--email", "alice@example.com")
	if err != nil {
		t.Fatalf("token issue: %v", err)
	}

	resolver := auth.NewResolver(auth.Config{JWTSecret: "cli-test-secret"}, logging.Discard().Logger)
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(out))
	id, err := resolver.Resolve(req)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id.UserID != "alice" || !id.IsAdmin() || id.Email != "alice@example.com" {
		t.Errorf("identity = %+v", id)
	}
}
