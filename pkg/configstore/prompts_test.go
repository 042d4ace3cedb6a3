// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package configstore

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pulse-training/pulse-gw/pkg/blobstore/memory"
	"github.com/pulse-training/pulse-gw/pkg/core/apierr"
	"github.com/pulse-training/pulse-gw/pkg/observability/logging"
)

func newTestPromptStore(t *testing.T) (*PromptStore, *memory.Store) {
	t.Helper()
	blobs := memory.New()
	s := NewPromptStore(blobs, logging.Discard().Logger)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return s, blobs
}

func strPtr(s string) *string { return &s }

func TestPromptLifecycle_Greeting(t *testing.T) {
	s, _ := newTestPromptStore(t)
	ctx := context.Background()

	p, err := s.PutNew(ctx, "greeting-v1", PromptFields{Title: "Greeting", Content: "Hello there"}, "dev-operator")
	if err != nil {
		t.Fatalf("PutNew: %v", err)
	}
	if p.Version != 1 || p.Deleted {
		t.Fatalf("after create: version=%d deleted=%v, want 1/false", p.Version, p.Deleted)
	}
	if p.Type != DefaultPromptType {
		t.Errorf("type = %q, want %q", p.Type, DefaultPromptType)
	}

	p, err = s.PutUpdate(ctx, "greeting-v1", PromptPatch{Content: strPtr("Hello, welcome to PULSE")}, "dev-operator")
	if err != nil {
		t.Fatalf("PutUpdate content: %v", err)
	}
	if p.Version != 2 {
		t.Fatalf("after update: version=%d, want 2", p.Version)
	}

	p, err = s.PutUpdate(ctx, "greeting-v1", PromptPatch{AgentID: strPtr("bce-coach")}, "dev-operator")
	if err != nil {
		t.Fatalf("PutUpdate agentId: %v", err)
	}
	if p.Version != 3 || p.AgentID != "bce-coach" || p.Content != "Hello, welcome to PULSE" {
		t.Fatalf("after second update: %+v", p)
	}

	p, err = s.SoftDelete(ctx, "greeting-v1", "dev-operator")
	if err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if p.Version != 4 || !p.Deleted {
		t.Fatalf("after delete: version=%d deleted=%v, want 4/true", p.Version, p.Deleted)
	}

	versions, err := s.ListVersions(ctx, "greeting-v1")
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 4 {
		t.Fatalf("expected 4 versions, got %d", len(versions))
	}
	for i, v := range versions {
		if v.Version != i+1 {
			t.Errorf("versions[%d].Version = %d, want %d", i, v.Version, i+1)
		}
		if v.UpdatedBy != "dev-operator" || v.UpdatedAt.IsZero() {
			t.Errorf("versions[%d] missing metadata: %+v", i, v)
		}
	}

	snap, err := s.GetVersion(ctx, "greeting-v1", 2)
	if err != nil {
		t.Fatalf("GetVersion: %v", err)
	}
	if snap.Content != "Hello, welcome to PULSE" || snap.Deleted || snap.AgentID != "" {
		t.Errorf("snapshot 2 changed by later writes: %+v", snap)
	}
	if snap.PromptID != "greeting-v1" || snap.Version != 2 {
		t.Errorf("snapshot 2 identity: %+v", snap)
	}

	cur, err := s.GetCurrent(ctx, "greeting-v1")
	if err != nil {
		t.Fatalf("GetCurrent after delete: %v", err)
	}
	if !cur.Deleted || cur.Version != 4 {
		t.Errorf("tombstone: %+v", cur)
	}
}

func TestPutNew_Validation(t *testing.T) {
	s, _ := newTestPromptStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		id   string
		f    PromptFields
	}{
		{"missing title", "a", PromptFields{Content: "x"}},
		{"missing content", "a", PromptFields{Title: "x"}},
		{"blank content", "a", PromptFields{Title: "x", Content: "   "}},
		{"bad id", "../etc", PromptFields{Title: "x", Content: "y"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.PutNew(ctx, tt.id, tt.f, "dev-operator")
			if !errors.Is(err, apierr.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestPutNew_DuplicateID(t *testing.T) {
	s, _ := newTestPromptStore(t)
	ctx := context.Background()

	if _, err := s.PutNew(ctx, "dup", PromptFields{Title: "A", Content: "a"}, "u"); err != nil {
		t.Fatalf("PutNew: %v", err)
	}
	_, err := s.PutNew(ctx, "dup", PromptFields{Title: "B", Content: "b"}, "u")
	if !errors.Is(err, apierr.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	versions, _ := s.ListVersions(ctx, "dup")
	if len(versions) != 1 {
		t.Errorf("rejected create consumed a version: %v", versions)
	}
}

func TestPutNew_DerivesIDFromTitle(t *testing.T) {
	s, _ := newTestPromptStore(t)

	p, err := s.PutNew(context.Background(), "", PromptFields{Title: "Opening Line!", Content: "hi"}, "u")
	if err != nil {
		t.Fatalf("PutNew: %v", err)
	}
	if !strings.HasPrefix(p.ID, "opening-line-") {
		t.Errorf("id = %q, want prefix opening-line-", p.ID)
	}
}

func TestPutUpdate_MissingAndDeleted(t *testing.T) {
	s, _ := newTestPromptStore(t)
	ctx := context.Background()

	_, err := s.PutUpdate(ctx, "ghost", PromptPatch{Content: strPtr("x")}, "u")
	if !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("update of missing prompt: expected ErrNotFound, got %v", err)
	}

	if _, err := s.PutNew(ctx, "gone", PromptFields{Title: "T", Content: "c"}, "u"); err != nil {
		t.Fatalf("PutNew: %v", err)
	}
	if _, err := s.SoftDelete(ctx, "gone", "u"); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	_, err = s.PutUpdate(ctx, "gone", PromptPatch{Content: strPtr("back")}, "u")
	if !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("update of deleted prompt: expected ErrNotFound, got %v", err)
	}
	last, _ := s.Versions().LastVersion(ctx, "gone")
	if last != 2 {
		t.Errorf("rejected update consumed a version: last=%d, want 2", last)
	}
}

func TestPutUpdate_VersionMismatchIsNotRejected(t *testing.T) {
	s, _ := newTestPromptStore(t)
	ctx := context.Background()

	if _, err := s.PutNew(ctx, "p", PromptFields{Title: "T", Content: "c"}, "u"); err != nil {
		t.Fatalf("PutNew: %v", err)
	}
	stale := 7
	p, err := s.PutUpdate(ctx, "p", PromptPatch{Title: strPtr("T2"), Version: &stale}, "u")
	if err != nil {
		t.Fatalf("PutUpdate: %v", err)
	}
	if p.Version != 2 || p.Title != "T2" || p.Content != "c" {
		t.Errorf("unexpected result: %+v", p)
	}
}

func TestSoftDelete_RepeatBumpsVersion(t *testing.T) {
	s, _ := newTestPromptStore(t)
	ctx := context.Background()

	if _, err := s.SoftDelete(ctx, "nope", "u"); !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("delete of missing prompt: expected ErrNotFound, got %v", err)
	}

	if _, err := s.PutNew(ctx, "p", PromptFields{Title: "T", Content: "c"}, "u"); err != nil {
		t.Fatalf("PutNew: %v", err)
	}
	for want := 2; want <= 3; want++ {
		p, err := s.SoftDelete(ctx, "p", "u")
		if err != nil {
			t.Fatalf("SoftDelete: %v", err)
		}
		if p.Version != want || !p.Deleted {
			t.Errorf("delete #%d: version=%d deleted=%v", want-1, p.Version, p.Deleted)
		}
	}

	snap, err := s.GetVersion(ctx, "p", 1)
	if err != nil {
		t.Fatalf("GetVersion(1): %v", err)
	}
	if snap.Deleted || snap.Content != "c" {
		t.Errorf("snapshot 1 altered by delete: %+v", snap)
	}
}

func TestVersionsAreMonotonic(t *testing.T) {
	s, _ := newTestPromptStore(t)
	ctx := context.Background()

	if _, err := s.PutNew(ctx, "m", PromptFields{Title: "T", Content: "0"}, "u"); err != nil {
		t.Fatalf("PutNew: %v", err)
	}
	for i := 2; i <= 12; i++ {
		p, err := s.PutUpdate(ctx, "m", PromptPatch{Content: strPtr(strings.Repeat("x", i))}, "u")
		if err != nil {
			t.Fatalf("PutUpdate %d: %v", i, err)
		}
		if p.Version != i {
			t.Fatalf("update %d produced version %d", i, p.Version)
		}
	}

	versions, err := s.ListVersions(ctx, "m")
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	for i, v := range versions {
		if v.Version != i+1 {
			t.Fatalf("gap or reorder at %d: %v", i, versions)
		}
	}
	cur, _ := s.GetCurrent(ctx, "m")
	if cur.Version != versions[len(versions)-1].Version {
		t.Errorf("current version %d != highest snapshot %d", cur.Version, versions[len(versions)-1].Version)
	}
}

func TestGetVersion_NotFound(t *testing.T) {
	s, _ := newTestPromptStore(t)
	ctx := context.Background()

	if _, err := s.PutNew(ctx, "p", PromptFields{Title: "T", Content: "c"}, "u"); err != nil {
		t.Fatalf("PutNew: %v", err)
	}
	for _, v := range []int{0, -1, 2} {
		if _, err := s.GetVersion(ctx, "p", v); !errors.Is(err, apierr.ErrNotFound) {
			t.Errorf("GetVersion(%d): expected ErrNotFound, got %v", v, err)
		}
	}
}

func TestListCurrent_SortedWithoutContent(t *testing.T) {
	s, _ := newTestPromptStore(t)
	ctx := context.Background()

	for _, id := range []string{"charlie", "alpha", "bravo"} {
		if _, err := s.PutNew(ctx, id, PromptFields{Title: strings.ToUpper(id), Content: "secret"}, "u"); err != nil {
			t.Fatalf("PutNew %s: %v", id, err)
		}
	}
	if _, err := s.PutUpdate(ctx, "alpha", PromptPatch{Content: strPtr("v2")}, "u"); err != nil {
		t.Fatalf("PutUpdate: %v", err)
	}
	if _, err := s.SoftDelete(ctx, "bravo", "u"); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}

	items, err := s.ListCurrent(ctx)
	if err != nil {
		t.Fatalf("ListCurrent: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(items))
	}
	wantIDs := []string{"alpha", "bravo", "charlie"}
	for i, it := range items {
		if it.ID != wantIDs[i] {
			t.Errorf("items[%d].ID = %q, want %q", i, it.ID, wantIDs[i])
		}
	}
	if items[0].Version != 2 || !items[1].Deleted {
		t.Errorf("unexpected summaries: %+v", items)
	}
}

func TestCrashBetweenSnapshotAndCurrent(t *testing.T) {
	s, blobs := newTestPromptStore(t)
	ctx := context.Background()

	if _, err := s.PutNew(ctx, "p", PromptFields{Title: "T", Content: "v1"}, "u"); err != nil {
		t.Fatalf("PutNew: %v", err)
	}
	// Snapshot 2 landed but the current blob was never rewritten.
	orphan := []byte(`{"promptId":"p","version":2,"title":"T","type":"system","content":"lost","updatedBy":"u"}`)
	if err := blobs.Put(ctx, "prompts/p/versions/2.json", orphan, "application/json"); err != nil {
		t.Fatalf("Put orphan: %v", err)
	}

	cur, _ := s.GetCurrent(ctx, "p")
	if cur.Version != 1 {
		t.Fatalf("current should still be v1, got %d", cur.Version)
	}

	p, err := s.PutUpdate(ctx, "p", PromptPatch{Content: strPtr("v3")}, "u")
	if err != nil {
		t.Fatalf("PutUpdate: %v", err)
	}
	if p.Version != 3 {
		t.Fatalf("next version after orphan = %d, want 3", p.Version)
	}
	snap, _ := s.GetVersion(ctx, "p", 2)
	if snap.Content != "lost" {
		t.Errorf("orphan snapshot was overwritten: %+v", snap)
	}
}

// Two writers of the same id that read the same last version both write
// snapshot n+1; the later write shadows the earlier one. There is no
// conditional write to prevent this.
func TestSameIDRace_LastWriterWins(t *testing.T) {
	s, _ := newTestPromptStore(t)
	ctx := context.Background()

	base, err := s.PutNew(ctx, "race", PromptFields{Title: "T", Content: "base"}, "u")
	if err != nil {
		t.Fatalf("PutNew: %v", err)
	}

	nextA, err := s.versions.NextVersionFor(ctx, "race")
	if err != nil {
		t.Fatalf("NextVersionFor A: %v", err)
	}
	nextB, err := s.versions.NextVersionFor(ctx, "race")
	if err != nil {
		t.Fatalf("NextVersionFor B: %v", err)
	}
	if nextA != 2 || nextB != 2 {
		t.Fatalf("both writers should compute version 2, got %d and %d", nextA, nextB)
	}

	a := *base
	a.Content, a.Version, a.UpdatedBy = "from A", nextA, "writer-a"
	b := *base
	b.Content, b.Version, b.UpdatedBy = "from B", nextB, "writer-b"

	if err := s.coll.Commit(ctx, "update", "race", nextA, a.snapshot(), &a); err != nil {
		t.Fatalf("commit A: %v", err)
	}
	if err := s.coll.Commit(ctx, "update", "race", nextB, b.snapshot(), &b); err != nil {
		t.Fatalf("commit B: %v", err)
	}

	cur, _ := s.GetCurrent(ctx, "race")
	snap, _ := s.GetVersion(ctx, "race", 2)
	if cur.Content != "from B" || snap.Content != "from B" {
		t.Errorf("expected B to shadow A: current=%q snapshot=%q", cur.Content, snap.Content)
	}
	versions, _ := s.ListVersions(ctx, "race")
	if len(versions) != 2 {
		t.Errorf("expected A's version to be lost, got %d versions", len(versions))
	}
}
