// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package seed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pulse-training/pulse-gw/pkg/blobstore/memory"
	"github.com/pulse-training/pulse-gw/pkg/configstore"
	"github.com/pulse-training/pulse-gw/pkg/core/apierr"
	"github.com/pulse-training/pulse-gw/pkg/observability/logging"
)

func newTestSeeder() (*Seeder, *configstore.PromptStore, *configstore.AgentStore) {
	blobs := memory.New()
	logger := logging.Discard().Logger
	prompts := configstore.NewPromptStore(blobs, logger)
	agents := configstore.NewAgentStore(blobs, logger)
	return New(prompts, agents, logger), prompts, agents
}

func TestDefaultSeed(t *testing.T) {
	f, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if len(f.Prompts) == 0 || len(f.Agents) == 0 {
		t.Fatalf("default seed is empty: %d prompts, %d agents", len(f.Prompts), len(f.Agents))
	}
}

func TestApply_Idempotent(t *testing.T) {
	s, prompts, agents := newTestSeeder()
	ctx := context.Background()
	f, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}

	first, err := s.Apply(ctx, f)
	if err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	if first.Prompts != len(f.Prompts) || first.Agents != len(f.Agents) || first.Skipped != 0 {
		t.Fatalf("first results = %+v", first)
	}

	second, err := s.Apply(ctx, f)
	if err != nil {
		t.Fatalf("second Apply: %v", err)
	}
	if second.Prompts != 0 || second.Agents != 0 || second.Skipped != len(f.Prompts)+len(f.Agents) {
		t.Errorf("second results = %+v", second)
	}

	p, err := prompts.GetCurrent(ctx, "persona-director")
	if err != nil {
		t.Fatalf("GetCurrent: %v", err)
	}
	if p.Version != 1 || p.Type != "persona" || p.UpdatedBy != Actor || p.Metadata["difficulty"] != "Expert/High Pressure" {
		t.Errorf("seeded persona = %+v", p)
	}

	set, err := agents.Get(ctx)
	if err != nil {
		t.Fatalf("agents Get: %v", err)
	}
	if set.Version != 1 || len(set.Agents) != len(f.Agents) {
		t.Fatalf("agent set = %+v", set)
	}
	for _, a := range set.Agents {
		if a.ID == "bce" {
			if a.Weight == nil || *a.Weight != 0.40 || a.FocusArea == "" || len(a.ScoringCriteria) == 0 {
				t.Errorf("bce agent = %+v", a)
			}
		}
	}
}

func TestApply_DoesNotOverwriteEdits(t *testing.T) {
	s, prompts, _ := newTestSeeder()
	ctx := context.Background()

	if _, err := prompts.PutNew(ctx, "pulse-evaluator", configstore.PromptFields{Title: "Custom", Content: "edited"}, "admin"); err != nil {
		t.Fatalf("PutNew: %v", err)
	}
	f, _ := Default()
	res, err := s.Apply(ctx, f)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Skipped != 1 {
		t.Errorf("expected one skipped prompt, got %+v", res)
	}
	p, _ := prompts.GetCurrent(ctx, "pulse-evaluator")
	if p.Content != "edited" || p.Version != 1 {
		t.Errorf("existing prompt was modified: %+v", p)
	}
}

func TestParse_Errors(t *testing.T) {
	if _, err := Parse([]byte("prompts: [{title: x, content: y}]")); !errors.Is(err, apierr.ErrValidation) {
		t.Errorf("missing id: expected validation error, got %v", err)
	}
	if _, err := Parse([]byte("prompts: {")); !errors.Is(err, apierr.ErrValidation) {
		t.Errorf("bad yaml: expected validation error, got %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	body := "prompts:\n  - id: hello\n    title: Hello\n    content: Say hello.\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.Prompts) != 1 || f.Prompts[0].ID != "hello" || len(f.Agents) != 0 {
		t.Errorf("file = %+v", f)
	}
}
