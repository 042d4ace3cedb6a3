// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package jobs persists background job records as versioned documents, so job
// state survives restarts and is shared by every gateway instance.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pulse-training/pulse-gw/pkg/blobstore"
	"github.com/pulse-training/pulse-gw/pkg/configstore"
	"github.com/pulse-training/pulse-gw/pkg/core/apierr"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

var transitions = map[Status][]Status{
	StatusPending: {StatusRunning, StatusCancelled},
	StatusRunning: {StatusRunning, StatusSucceeded, StatusFailed, StatusCancelled},
}

// CanTransition reports whether a job may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Job is the persisted state of one job.
type Job struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	Status    Status         `json:"status"`
	Progress  int            `json:"progress"`
	Message   string         `json:"message,omitempty"`
	Result    map[string]any `json:"result,omitempty"`
	Version   int            `json:"version"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	UpdatedBy string         `json:"updatedBy"`
}

// Update is a requested status transition.
type Update struct {
	Status   Status
	Progress *int
	Message  string
	Result   map[string]any
}

// Store reads and writes job records.
type Store struct {
	coll     *configstore.Collection
	versions *configstore.VersionManager
	logger   *slog.Logger
	now      func() time.Time
}

// NewStore returns a job Store over blobs. A nil logger uses slog.Default().
func NewStore(blobs blobstore.BlobStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	coll := configstore.NewCollection(blobs, "jobs")
	return &Store{
		coll:     coll,
		versions: configstore.NewVersionManager(coll),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create records a new pending job of the given kind.
func (s *Store) Create(ctx context.Context, kind, actor string) (*Job, error) {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return nil, apierr.Validation("'kind' is required")
	}
	id := "job-" + uuid.NewString()
	next, err := s.versions.NextVersionFor(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	j := &Job{
		ID:        id,
		Kind:      kind,
		Status:    StatusPending,
		Version:   next,
		CreatedAt: now,
		UpdatedAt: now,
		UpdatedBy: actor,
	}
	if err := s.coll.Commit(ctx, "create", id, next, j, j); err != nil {
		return nil, err
	}
	s.logger.Info("job created", "id", id, "kind", kind)
	return j, nil
}

// Get returns the current record of job id.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	if err := configstore.ValidateID(id); err != nil {
		return nil, err
	}
	var j Job
	if err := s.coll.ReadCurrent(ctx, id, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

// Advance applies u to job id as a new version. Transitions outside the job
// state machine are rejected with a validation error.
func (s *Store) Advance(ctx context.Context, id string, u Update, actor string) (*Job, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(cur.Status, u.Status) {
		return nil, apierr.Validation("job %s: cannot move from %s to %s", id, cur.Status, u.Status)
	}

	j := *cur
	j.Status = u.Status
	if u.Progress != nil {
		if *u.Progress < 0 || *u.Progress > 100 {
			return nil, apierr.Validation("progress must be between 0 and 100")
		}
		if *u.Progress < cur.Progress {
			return nil, apierr.Validation("progress cannot decrease (%d -> %d)", cur.Progress, *u.Progress)
		}
		j.Progress = *u.Progress
	}
	if u.Status == StatusSucceeded {
		j.Progress = 100
	}
	if u.Message != "" {
		j.Message = u.Message
	}
	if u.Result != nil {
		j.Result = u.Result
	}

	next, err := s.versions.NextVersionFor(ctx, id)
	if err != nil {
		return nil, err
	}
	j.Version = next
	j.UpdatedAt = s.now()
	j.UpdatedBy = actor

	if err := s.coll.Commit(ctx, "advance", id, next, &j, &j); err != nil {
		return nil, err
	}
	s.logger.Info("job advanced", "id", id, "status", j.Status, "progress", j.Progress, "version", next)
	return &j, nil
}

// History returns the stored versions of job id.
func (s *Store) History(ctx context.Context, id string) ([]configstore.VersionInfo, error) {
	if err := configstore.ValidateID(id); err != nil {
		return nil, err
	}
	return s.coll.History(ctx, id)
}

// ParseStatus validates a status name.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusRunning, StatusSucceeded, StatusFailed, StatusCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("%w: unknown job status %q", apierr.ErrValidation, s)
	}
}
