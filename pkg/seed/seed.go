// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package seed loads prompts and agents from a YAML file into an empty or
// partially populated store.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pulse-training/pulse-gw/pkg/configstore"
	"github.com/pulse-training/pulse-gw/pkg/core/apierr"
	"github.com/pulse-training/pulse-gw/pkg/core/schema"
)

// Actor is recorded as updatedBy on seeded documents.
const Actor = "seed-admin-data"

//go:embed default.yaml
var defaultSeed []byte

// File is the seed file layout.
type File struct {
	Prompts []Prompt         `yaml:"prompts"`
	Agents  []map[string]any `yaml:"agents"`
}

// Prompt is one seeded prompt. ID is required so that reseeding is
// idempotent.
type Prompt struct {
	ID          string         `yaml:"id"`
	Title       string         `yaml:"title"`
	Type        string         `yaml:"type"`
	AgentID     string         `yaml:"agentId"`
	Content     string         `yaml:"content"`
	Description string         `yaml:"description"`
	Metadata    map[string]any `yaml:"metadata"`
}

// Parse decodes a seed file.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, apierr.Validation("parse seed file: %v", err)
	}
	for i, p := range f.Prompts {
		if p.ID == "" {
			return nil, apierr.Validation("seed prompt %d: id is required", i)
		}
	}
	return &f, nil
}

// Load reads a seed file from disk. An empty path returns the built-in seed.
func Load(path string) (*File, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in seed data.
func Default() (*File, error) {
	return Parse(defaultSeed)
}

// Seeder writes seed data through the config stores.
type Seeder struct {
	prompts *configstore.PromptStore
	agents  *configstore.AgentStore
	logger  *slog.Logger
}

// New returns a Seeder. A nil logger uses slog.Default().
func New(prompts *configstore.PromptStore, agents *configstore.AgentStore, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{prompts: prompts, agents: agents, logger: logger}
}

// Apply creates every prompt that does not exist yet and installs the agent
// list when no agents are stored. Existing documents are never overwritten,
// so applying the same file twice is a no-op.
func (s *Seeder) Apply(ctx context.Context, f *File) (schema.SeedResults, error) {
	var res schema.SeedResults

	for _, p := range f.Prompts {
		_, err := s.prompts.PutNew(ctx, p.ID, configstore.PromptFields{
			Title:       p.Title,
			Type:        p.Type,
			AgentID:     p.AgentID,
			Content:     p.Content,
			Description: p.Description,
			Metadata:    p.Metadata,
		}, Actor)
		switch {
		case err == nil:
			res.Prompts++
		case errors.Is(err, apierr.ErrAlreadyExists):
			res.Skipped++
		default:
			return res, fmt.Errorf("seed prompt %s: %w", p.ID, err)
		}
	}

	if len(f.Agents) > 0 {
		current, err := s.agents.Get(ctx)
		if err != nil {
			return res, fmt.Errorf("seed agents: %w", err)
		}
		if current.Version > 0 {
			res.Skipped += len(f.Agents)
		} else {
			agents, err := toAgents(f.Agents)
			if err != nil {
				return res, err
			}
			if _, err := s.agents.Replace(ctx, agents, Actor); err != nil {
				return res, fmt.Errorf("seed agents: %w", err)
			}
			res.Agents = len(agents)
		}
	}

	s.logger.Info("seed applied", "prompts", res.Prompts, "agents", res.Agents, "skipped", res.Skipped)
	return res, nil
}

// toAgents converts loosely typed YAML maps into agents, keeping unknown
// keys.
func toAgents(raw []map[string]any) ([]configstore.Agent, error) {
	agents := make([]configstore.Agent, 0, len(raw))
	for i, m := range raw {
		data, err := json.Marshal(m)
		if err != nil {
			return nil, apierr.Validation("seed agent %d: %v", i, err)
		}
		var a configstore.Agent
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, apierr.Validation("seed agent %d: %v", i, err)
		}
		agents = append(agents, a)
	}
	return agents, nil
}
