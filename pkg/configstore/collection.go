// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package configstore keeps versioned configuration documents on top of a
// blobstore.BlobStore.
//
// Every document id has a current blob and one immutable snapshot per version:
//
//	<collection>/<id>.json                 current document
//	<collection>/<id>/versions/<n>.json    snapshot n
//
// Singleton collections (the agent list) use the empty id and live at
// <collection>.json and <collection>/versions/<n>.json.
//
// A mutation reads the last version, writes snapshot last+1 and then the
// current blob. There are no locks and no conditional writes: concurrent
// writers of the same id both compute the same next version, and the last
// current-blob write wins.
package configstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pulse-training/pulse-gw/pkg/blobstore"
	"github.com/pulse-training/pulse-gw/pkg/core/apierr"
	"github.com/pulse-training/pulse-gw/pkg/observability/metrics"
)

const (
	jsonExt       = ".json"
	versionsDir   = "/versions/"
	jsonMediaType = "application/json"
)

// Collection maps document ids to blob keys within one named collection.
type Collection struct {
	blobs blobstore.BlobStore
	name  string
}

// NewCollection returns the collection rooted at name.
func NewCollection(blobs blobstore.BlobStore, name string) *Collection {
	return &Collection{blobs: blobs, name: name}
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// CurrentKey returns the blob key of the current document for id.
func (c *Collection) CurrentKey(id string) string {
	if id == "" {
		return c.name + jsonExt
	}
	return c.name + "/" + id + jsonExt
}

// SnapshotKey returns the blob key of snapshot version v for id.
func (c *Collection) SnapshotKey(id string, v int) string {
	return c.snapshotPrefix(id) + strconv.Itoa(v) + jsonExt
}

func (c *Collection) snapshotPrefix(id string) string {
	if id == "" {
		return c.name + versionsDir
	}
	return c.name + "/" + id + versionsDir
}

// ReadCurrent decodes the current document for id into out.
func (c *Collection) ReadCurrent(ctx context.Context, id string, out any) error {
	return c.read(ctx, c.CurrentKey(id), out)
}

// ReadSnapshot decodes snapshot v of id into out.
func (c *Collection) ReadSnapshot(ctx context.Context, id string, v int, out any) error {
	return c.read(ctx, c.SnapshotKey(id, v), out)
}

func (c *Collection) read(ctx context.Context, key string, out any) error {
	data, err := c.blobs.Get(ctx, key)
	if err != nil {
		if errors.Is(err, blobstore.ErrBlobNotFound) {
			return fmt.Errorf("%s: %w", key, apierr.ErrNotFound)
		}
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// HasCurrent reports whether a current document exists for id.
func (c *Collection) HasCurrent(ctx context.Context, id string) (bool, error) {
	ok, err := c.blobs.Exists(ctx, c.CurrentKey(id))
	if err != nil {
		return false, fmt.Errorf("check %s: %w", c.CurrentKey(id), err)
	}
	return ok, nil
}

// SnapshotVersions returns the stored snapshot numbers for id, ascending.
// Keys that do not parse as a positive version are ignored.
func (c *Collection) SnapshotVersions(ctx context.Context, id string) ([]int, error) {
	prefix := c.snapshotPrefix(id)
	keys, err := c.blobs.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	versions := make([]int, 0, len(keys))
	for _, k := range keys {
		name := strings.TrimPrefix(k, prefix)
		if !strings.HasSuffix(name, jsonExt) {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSuffix(name, jsonExt))
		if err != nil || v < 1 {
			continue
		}
		versions = append(versions, v)
	}
	sort.Ints(versions)
	return versions, nil
}

// IDs returns the ids of every current document in the collection, sorted.
func (c *Collection) IDs(ctx context.Context) ([]string, error) {
	prefix := c.name + "/"
	keys, err := c.blobs.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		rest := strings.TrimPrefix(k, prefix)
		if strings.Contains(rest, "/") || !strings.HasSuffix(rest, jsonExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(rest, jsonExt))
	}
	sort.Strings(ids)
	return ids, nil
}

// Commit writes snapshot v and then the current document for id. A failure
// after the snapshot write leaves an orphan snapshot that VersionManager
// accounts for on the next mutation.
func (c *Collection) Commit(ctx context.Context, op, id string, v int, snapshot, current any) error {
	snap, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	cur, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("encode current: %w", err)
	}

	if err := c.blobs.Put(ctx, c.SnapshotKey(id, v), snap, jsonMediaType); err != nil {
		return fmt.Errorf("write snapshot %s: %w", c.SnapshotKey(id, v), err)
	}
	if err := c.blobs.Put(ctx, c.CurrentKey(id), cur, jsonMediaType); err != nil {
		return fmt.Errorf("write current %s: %w", c.CurrentKey(id), err)
	}
	metrics.ConfigStoreWrites.WithLabelValues(c.name, op).Inc()
	return nil
}

// History reads the metadata of every stored snapshot of id, ascending.
func (c *Collection) History(ctx context.Context, id string) ([]VersionInfo, error) {
	versions, err := c.SnapshotVersions(ctx, id)
	if err != nil {
		return nil, err
	}

	out := make([]VersionInfo, len(versions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelReads)
	for i, v := range versions {
		g.Go(func() error {
			var info VersionInfo
			if err := c.ReadSnapshot(gctx, id, v, &info); err != nil {
				return err
			}
			info.Version = v
			out[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
