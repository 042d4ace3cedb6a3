// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/pulse-training/pulse-gw/pkg/blobstore/memory"
	"github.com/pulse-training/pulse-gw/pkg/core/apierr"
	"github.com/pulse-training/pulse-gw/pkg/observability/logging"
)

func intPtr(i int) *int { return &i }

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusRunning, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusSucceeded, false},
		{StatusRunning, StatusRunning, true},
		{StatusRunning, StatusSucceeded, true},
		{StatusRunning, StatusFailed, true},
		{StatusRunning, StatusPending, false},
		{StatusSucceeded, StatusRunning, false},
		{StatusCancelled, StatusPending, false},
		{StatusFailed, StatusFailed, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.ok {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}

func TestJobLifecycle(t *testing.T) {
	blobs := memory.New()
	s := NewStore(blobs, logging.Discard().Logger)
	ctx := context.Background()

	j, err := s.Create(ctx, "seed-download", "dev-operator")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if j.Status != StatusPending || j.Version != 1 {
		t.Fatalf("new job: %+v", j)
	}

	j, err = s.Advance(ctx, j.ID, Update{Status: StatusRunning, Progress: intPtr(40)}, "worker")
	if err != nil {
		t.Fatalf("Advance running: %v", err)
	}
	if j.Progress != 40 || j.Version != 2 {
		t.Fatalf("after running: %+v", j)
	}

	j, err = s.Advance(ctx, j.ID, Update{Status: StatusSucceeded, Result: map[string]any{"items": 3}}, "worker")
	if err != nil {
		t.Fatalf("Advance succeeded: %v", err)
	}
	if j.Progress != 100 || j.Version != 3 || j.Result["items"] != 3 {
		t.Fatalf("after success: %+v", j)
	}

	_, err = s.Advance(ctx, j.ID, Update{Status: StatusRunning}, "worker")
	if !errors.Is(err, apierr.ErrValidation) {
		t.Fatalf("transition out of terminal state: expected validation error, got %v", err)
	}

	// A fresh store over the same blobs sees the persisted record.
	reopened := NewStore(blobs, nil)
	got, err := reopened.Get(ctx, j.ID)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got.Status != StatusSucceeded || got.Version != 3 {
		t.Errorf("reopened job: %+v", got)
	}
	history, err := reopened.History(ctx, j.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 3 {
		t.Errorf("history length = %d, want 3", len(history))
	}
}

func TestAdvance_RejectsBadProgress(t *testing.T) {
	s := NewStore(memory.New(), logging.Discard().Logger)
	ctx := context.Background()

	j, err := s.Create(ctx, "k", "u")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Advance(ctx, j.ID, Update{Status: StatusRunning, Progress: intPtr(150)}, "u"); !errors.Is(err, apierr.ErrValidation) {
		t.Errorf("progress 150: expected validation error, got %v", err)
	}
	if _, err := s.Advance(ctx, j.ID, Update{Status: StatusRunning, Progress: intPtr(50)}, "u"); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if _, err := s.Advance(ctx, j.ID, Update{Status: StatusRunning, Progress: intPtr(10)}, "u"); !errors.Is(err, apierr.ErrValidation) {
		t.Errorf("decreasing progress: expected validation error, got %v", err)
	}
}

func TestGetAndCreate_Errors(t *testing.T) {
	s := NewStore(memory.New(), logging.Discard().Logger)
	ctx := context.Background()

	if _, err := s.Create(ctx, "  ", "u"); !errors.Is(err, apierr.ErrValidation) {
		t.Errorf("empty kind: expected validation error, got %v", err)
	}
	if _, err := s.Get(ctx, "job-missing"); !errors.Is(err, apierr.ErrNotFound) {
		t.Errorf("missing job: expected ErrNotFound, got %v", err)
	}
}

func TestParseStatus(t *testing.T) {
	if st, err := ParseStatus(" Running "); err != nil || st != StatusRunning {
		t.Errorf("ParseStatus(Running) = %q, %v", st, err)
	}
	if _, err := ParseStatus("paused"); !errors.Is(err, apierr.ErrValidation) {
		t.Errorf("ParseStatus(paused): expected validation error, got %v", err)
	}
}
