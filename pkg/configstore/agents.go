// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package configstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pulse-training/pulse-gw/pkg/blobstore"
	"github.com/pulse-training/pulse-gw/pkg/core/apierr"
)

// agentsID is the id of the singleton agent list document.
const agentsID = ""

// Agent is one evaluation agent definition. Keys other than the named fields
// are kept in Extra and written back unchanged.
type Agent struct {
	ID              string          `json:"id"`
	Name            string          `json:"name,omitempty"`
	Type            string          `json:"type,omitempty"`
	Description     string          `json:"description,omitempty"`
	Weight          *float64        `json:"weight,omitempty"`
	FocusArea       string          `json:"focusArea,omitempty"`
	ScoringCriteria json.RawMessage `json:"scoringCriteria,omitempty"`
	Version         int             `json:"version"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	UpdatedBy       string          `json:"updatedBy"`

	Extra map[string]json.RawMessage `json:"-"`
}

type agentFields Agent

var agentKnownKeys = []string{
	"id", "name", "type", "description", "weight", "focusArea",
	"scoringCriteria", "version", "updatedAt", "updatedBy",
}

// UnmarshalJSON decodes the named fields and keeps the rest in Extra.
func (a *Agent) UnmarshalJSON(data []byte) error {
	var f agentFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range agentKnownKeys {
		delete(raw, k)
	}
	if len(raw) > 0 {
		f.Extra = raw
	} else {
		f.Extra = nil
	}
	*a = Agent(f)
	return nil
}

// MarshalJSON writes the named fields merged with Extra.
func (a Agent) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(agentFields(a))
	if err != nil {
		return nil, err
	}
	if len(a.Extra) == 0 {
		return known, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for k, v := range a.Extra {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// AgentSet is the agent list together with its collection version.
type AgentSet struct {
	Agents    []Agent   `json:"agents"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
	UpdatedBy string    `json:"updatedBy,omitempty"`
}

// AgentStore keeps the agent list as one versioned document.
type AgentStore struct {
	coll     *Collection
	versions *VersionManager
	logger   *slog.Logger
	now      func() time.Time
}

// NewAgentStore returns an AgentStore over blobs. A nil logger uses
// slog.Default().
func NewAgentStore(blobs blobstore.BlobStore, logger *slog.Logger) *AgentStore {
	if logger == nil {
		logger = slog.Default()
	}
	coll := NewCollection(blobs, "agents")
	return &AgentStore{
		coll:     coll,
		versions: NewVersionManager(coll),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the current agent list. Before the first write it is empty
// with version 0.
func (s *AgentStore) Get(ctx context.Context) (*AgentSet, error) {
	var set AgentSet
	if err := s.coll.ReadCurrent(ctx, agentsID, &set); err != nil {
		if errors.Is(err, apierr.ErrNotFound) {
			return &AgentSet{Agents: []Agent{}}, nil
		}
		return nil, err
	}
	if set.Agents == nil {
		set.Agents = []Agent{}
	}
	return &set, nil
}

// Replace stores agents as the new list. Each agent's version becomes its
// previous version plus one, or 1 for an id not in the previous list.
func (s *AgentStore) Replace(ctx context.Context, agents []Agent, actor string) (*AgentSet, error) {
	seen := make(map[string]bool, len(agents))
	for i := range agents {
		id := strings.TrimSpace(agents[i].ID)
		if id == "" {
			return nil, apierr.Validation("agents[%d]: 'id' is required", i)
		}
		if err := ValidateID(id); err != nil {
			return nil, err
		}
		if seen[id] {
			return nil, apierr.Validation("duplicate agent id %q", id)
		}
		seen[id] = true
	}

	prev, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	prevVersions := make(map[string]int, len(prev.Agents))
	for _, a := range prev.Agents {
		prevVersions[a.ID] = a.Version
	}

	next, err := s.versions.NextVersionFor(ctx, agentsID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	set := &AgentSet{
		Agents:    make([]Agent, len(agents)),
		Version:   next,
		UpdatedAt: now,
		UpdatedBy: actor,
	}
	for i, a := range agents {
		a.ID = strings.TrimSpace(a.ID)
		a.Version = prevVersions[a.ID] + 1
		a.UpdatedAt = now
		a.UpdatedBy = actor
		set.Agents[i] = a
	}

	if err := s.coll.Commit(ctx, "replace", agentsID, next, set, set); err != nil {
		return nil, err
	}
	s.logger.Info("agents replaced", "count", len(agents), "version", next)
	return set, nil
}

// ListVersions returns the stored agent list snapshots in ascending order.
func (s *AgentStore) ListVersions(ctx context.Context) ([]VersionInfo, error) {
	return s.coll.History(ctx, agentsID)
}

// GetVersion returns agent list snapshot v.
func (s *AgentStore) GetVersion(ctx context.Context, v int) (*AgentSet, error) {
	if v < 1 {
		return nil, fmt.Errorf("agents version %d: %w", v, apierr.ErrNotFound)
	}
	var set AgentSet
	if err := s.coll.ReadSnapshot(ctx, agentsID, v, &set); err != nil {
		return nil, err
	}
	return &set, nil
}
