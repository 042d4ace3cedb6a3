// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package blobstoretest provides a shared conformance test suite for
// blobstore.BlobStore implementations. Each backend should call
// RunConformanceTests from its own _test.go file.
package blobstoretest

import (
	"context"
	"errors"
	"testing"

	"github.com/pulse-training/pulse-gw/pkg/blobstore"
)

// RunConformanceTests exercises a BlobStore implementation against the shared
// contract. The newStore function is called once per sub-test to provide an
// isolated store instance.
func RunConformanceTests(t *testing.T, newStore func(t *testing.T) blobstore.BlobStore) {
	t.Helper()

	t.Run("PutAndGet", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		want := []byte(`{"id":"greeting","version":1}`)
		if err := store.Put(ctx, "prompts/greeting.json", want, "application/json"); err != nil {
			t.Fatalf("Put: %v", err)
		}

		got, err := store.Get(ctx, "prompts/greeting.json")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if string(got) != string(want) {
			t.Errorf("content mismatch: got %q, want %q", got, want)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())

		_, err := store.Get(context.Background(), "prompts/nope.json")
		if !errors.Is(err, blobstore.ErrBlobNotFound) {
			t.Errorf("expected ErrBlobNotFound, got: %v", err)
		}
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		if err := store.Put(ctx, "agents.json", []byte("v1"), "application/json"); err != nil {
			t.Fatalf("Put v1: %v", err)
		}
		if err := store.Put(ctx, "agents.json", []byte("v2"), "application/json"); err != nil {
			t.Fatalf("Put v2: %v", err)
		}
		got, err := store.Get(ctx, "agents.json")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if string(got) != "v2" {
			t.Errorf("expected overwrite to win, got %q", got)
		}
	})

	t.Run("Exists", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		ok, err := store.Exists(ctx, "prompts/a.json")
		if err != nil {
			t.Fatalf("Exists: %v", err)
		}
		if ok {
			t.Error("expected Exists to be false before Put")
		}

		if err := store.Put(ctx, "prompts/a.json", []byte("{}"), "application/json"); err != nil {
			t.Fatalf("Put: %v", err)
		}
		ok, err = store.Exists(ctx, "prompts/a.json")
		if err != nil {
			t.Fatalf("Exists: %v", err)
		}
		if !ok {
			t.Error("expected Exists to be true after Put")
		}
	})

	t.Run("ListByPrefix", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		keys := []string{
			"prompts/b.json",
			"prompts/a.json",
			"prompts/a/versions/2.json",
			"prompts/a/versions/1.json",
			"agents.json",
		}
		for _, k := range keys {
			if err := store.Put(ctx, k, []byte("{}"), "application/json"); err != nil {
				t.Fatalf("Put %s: %v", k, err)
			}
		}

		got, err := store.List(ctx, "prompts/a/versions/")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		want := []string{"prompts/a/versions/1.json", "prompts/a/versions/2.json"}
		if !equal(got, want) {
			t.Errorf("List(versions) = %v, want %v", got, want)
		}

		got, err = store.List(ctx, "prompts/")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		want = []string{"prompts/a.json", "prompts/a/versions/1.json", "prompts/a/versions/2.json", "prompts/b.json"}
		if !equal(got, want) {
			t.Errorf("List(prompts) = %v, want %v", got, want)
		}
	})

	t.Run("ListEmpty", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())

		got, err := store.List(context.Background(), "jobs/")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected empty listing, got %v", got)
		}
	})

	t.Run("InvalidKey", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())

		for _, key := range []string{"", "/abs.json", "prompts/../escape.json", "prompts//x.json"} {
			err := store.Put(context.Background(), key, []byte("x"), "")
			if !errors.Is(err, blobstore.ErrInvalidKey) {
				t.Errorf("Put(%q): expected ErrInvalidKey, got %v", key, err)
			}
		}
	})
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
