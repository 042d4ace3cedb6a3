// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package configstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pulse-training/pulse-gw/pkg/blobstore"
	"github.com/pulse-training/pulse-gw/pkg/core/apierr"
)

// DefaultPromptType is applied when a prompt is created without a type.
const DefaultPromptType = "system"

// maxParallelReads bounds concurrent blob reads when building listings.
const maxParallelReads = 8

// Prompt is the current state of a prompt.
type Prompt struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Type        string         `json:"type"`
	AgentID     string         `json:"agentId,omitempty"`
	Content     string         `json:"content"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Version     int            `json:"version"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	UpdatedBy   string         `json:"updatedBy"`
	Deleted     bool           `json:"deleted"`
}

// PromptSnapshot is the immutable record of one prompt version.
type PromptSnapshot struct {
	PromptID    string         `json:"promptId"`
	Version     int            `json:"version"`
	Title       string         `json:"title"`
	Type        string         `json:"type"`
	AgentID     string         `json:"agentId,omitempty"`
	Content     string         `json:"content"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	UpdatedBy   string         `json:"updatedBy"`
	Deleted     bool           `json:"deleted"`
}

// PromptSummary is the listing view of a prompt, without content.
type PromptSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Type      string    `json:"type"`
	AgentID   string    `json:"agentId,omitempty"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
	Deleted   bool      `json:"deleted"`
}

// VersionInfo describes one stored snapshot.
type VersionInfo struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
	UpdatedBy string    `json:"updatedBy"`
}

// PromptFields are the values of a new prompt.
type PromptFields struct {
	Title       string
	Type        string
	AgentID     string
	Content     string
	Description string
	Metadata    map[string]any
}

// PromptPatch holds the fields to change on update. Nil fields keep their
// current value. Version is the version the caller last read; a mismatch is
// logged but not rejected.
type PromptPatch struct {
	Title       *string
	Type        *string
	AgentID     *string
	Content     *string
	Description *string
	Metadata    map[string]any
	Version     *int
}

func (p *Prompt) snapshot() PromptSnapshot {
	return PromptSnapshot{
		PromptID:    p.ID,
		Version:     p.Version,
		Title:       p.Title,
		Type:        p.Type,
		AgentID:     p.AgentID,
		Content:     p.Content,
		Description: p.Description,
		Metadata:    p.Metadata,
		UpdatedAt:   p.UpdatedAt,
		UpdatedBy:   p.UpdatedBy,
		Deleted:     p.Deleted,
	}
}

func (p *Prompt) summary() PromptSummary {
	return PromptSummary{
		ID:        p.ID,
		Title:     p.Title,
		Type:      p.Type,
		AgentID:   p.AgentID,
		Version:   p.Version,
		UpdatedAt: p.UpdatedAt,
		Deleted:   p.Deleted,
	}
}

// PromptStore is the versioned store for prompts.
type PromptStore struct {
	coll     *Collection
	versions *VersionManager
	logger   *slog.Logger
	now      func() time.Time
}

// NewPromptStore returns a PromptStore over blobs. A nil logger uses
// slog.Default().
func NewPromptStore(blobs blobstore.BlobStore, logger *slog.Logger) *PromptStore {
	if logger == nil {
		logger = slog.Default()
	}
	coll := NewCollection(blobs, "prompts")
	return &PromptStore{
		coll:     coll,
		versions: NewVersionManager(coll),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Versions exposes the store's VersionManager.
func (s *PromptStore) Versions() *VersionManager { return s.versions }

// GetCurrent returns the current document for id, including tombstones.
func (s *PromptStore) GetCurrent(ctx context.Context, id string) (*Prompt, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	var p Prompt
	if err := s.coll.ReadCurrent(ctx, id, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListCurrent returns a summary of every prompt, deleted ones included,
// sorted by id.
func (s *PromptStore) ListCurrent(ctx context.Context) ([]PromptSummary, error) {
	ids, err := s.coll.IDs(ctx)
	if err != nil {
		return nil, err
	}

	docs := make([]*Prompt, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelReads)
	for i, id := range ids {
		g.Go(func() error {
			var p Prompt
			if err := s.coll.ReadCurrent(gctx, id, &p); err != nil {
				return err
			}
			if p.ID == "" {
				p.ID = id
			}
			docs[i] = &p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]PromptSummary, 0, len(docs))
	for _, p := range docs {
		out = append(out, p.summary())
	}
	return out, nil
}

// PutNew creates a prompt. An empty id is derived from the title. Title and
// content are required; the type defaults to "system".
func (s *PromptStore) PutNew(ctx context.Context, id string, f PromptFields, actor string) (*Prompt, error) {
	title := strings.TrimSpace(f.Title)
	if title == "" || strings.TrimSpace(f.Content) == "" {
		return nil, apierr.Validation("'title' and 'content' are required")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		id = NewPromptID(title)
	}
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if err := s.versions.AssertAbsent(ctx, id); err != nil {
		return nil, err
	}
	next, err := s.versions.NextVersionFor(ctx, id)
	if err != nil {
		return nil, err
	}

	ptype := strings.TrimSpace(f.Type)
	if ptype == "" {
		ptype = DefaultPromptType
	}
	p := &Prompt{
		ID:          id,
		Title:       title,
		Type:        ptype,
		AgentID:     strings.TrimSpace(f.AgentID),
		Content:     f.Content,
		Description: f.Description,
		Metadata:    f.Metadata,
		Version:     next,
		UpdatedAt:   s.now(),
		UpdatedBy:   actor,
	}
	if err := s.coll.Commit(ctx, "create", id, next, p.snapshot(), p); err != nil {
		return nil, err
	}
	s.logger.Info("prompt created", "id", id, "version", next, "type", p.Type, "agent_id", p.AgentID)
	return p, nil
}

// PutUpdate merges patch into the current prompt and writes version n+1.
// Deleted prompts cannot be updated.
func (s *PromptStore) PutUpdate(ctx context.Context, id string, patch PromptPatch, actor string) (*Prompt, error) {
	cur, err := s.GetCurrent(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.Deleted {
		return nil, fmt.Errorf("prompt %q is deleted: %w", id, apierr.ErrNotFound)
	}
	if patch.Version != nil && *patch.Version != cur.Version {
		s.logger.Warn("prompt version mismatch", "id", id, "client_version", *patch.Version, "current_version", cur.Version)
	}

	next, err := s.versions.NextVersionFor(ctx, id)
	if err != nil {
		return nil, err
	}

	p := *cur
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return nil, apierr.Validation("'title' must not be empty")
		}
		p.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Type != nil {
		p.Type = strings.TrimSpace(*patch.Type)
	}
	if patch.AgentID != nil {
		p.AgentID = strings.TrimSpace(*patch.AgentID)
	}
	if patch.Content != nil {
		if strings.TrimSpace(*patch.Content) == "" {
			return nil, apierr.Validation("'content' must not be empty")
		}
		p.Content = *patch.Content
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Metadata != nil {
		p.Metadata = patch.Metadata
	}
	p.Version = next
	p.UpdatedAt = s.now()
	p.UpdatedBy = actor

	if err := s.coll.Commit(ctx, "update", id, next, p.snapshot(), &p); err != nil {
		return nil, err
	}
	s.logger.Info("prompt updated", "id", id, "version", next)
	return &p, nil
}

// SoftDelete marks the prompt deleted as a new version. Deleting a tombstone
// records another version.
func (s *PromptStore) SoftDelete(ctx context.Context, id string, actor string) (*Prompt, error) {
	cur, err := s.GetCurrent(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := s.versions.NextVersionFor(ctx, id)
	if err != nil {
		return nil, err
	}

	p := *cur
	p.Deleted = true
	p.Version = next
	p.UpdatedAt = s.now()
	p.UpdatedBy = actor

	if err := s.coll.Commit(ctx, "delete", id, next, p.snapshot(), &p); err != nil {
		return nil, err
	}
	s.logger.Info("prompt deleted", "id", id, "tombstone_version", next)
	return &p, nil
}

// GetVersion returns snapshot v of id.
func (s *PromptStore) GetVersion(ctx context.Context, id string, v int) (*PromptSnapshot, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if v < 1 {
		return nil, fmt.Errorf("prompt %q version %d: %w", id, v, apierr.ErrNotFound)
	}
	var snap PromptSnapshot
	if err := s.coll.ReadSnapshot(ctx, id, v, &snap); err != nil {
		return nil, err
	}
	if snap.PromptID == "" {
		snap.PromptID = id
	}
	if snap.Version == 0 {
		snap.Version = v
	}
	return &snap, nil
}

// ListVersions returns every stored snapshot of id in ascending order. An id
// with no history yields an empty list.
func (s *PromptStore) ListVersions(ctx context.Context, id string) ([]VersionInfo, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	return s.coll.History(ctx, id)
}
