// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package configstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/pulse-training/pulse-gw/pkg/core/apierr"
)

// VersionManager computes version numbers and existence guards for one
// collection. It holds no state between calls.
type VersionManager struct {
	c *Collection
}

// NewVersionManager returns a VersionManager for c.
func NewVersionManager(c *Collection) *VersionManager {
	return &VersionManager{c: c}
}

// LastVersion returns the highest version recorded for id: the larger of the
// current document's version and the highest stored snapshot. It is 0 for an
// id that was never written.
func (m *VersionManager) LastVersion(ctx context.Context, id string) (int, error) {
	var head struct {
		Version int `json:"version"`
	}
	last := 0
	err := m.c.ReadCurrent(ctx, id, &head)
	switch {
	case err == nil:
		last = head.Version
	case errors.Is(err, apierr.ErrNotFound):
	default:
		return 0, err
	}

	versions, err := m.c.SnapshotVersions(ctx, id)
	if err != nil {
		return 0, err
	}
	if n := len(versions); n > 0 && versions[n-1] > last {
		last = versions[n-1]
	}
	return last, nil
}

// NextVersionFor returns LastVersion(id)+1.
func (m *VersionManager) NextVersionFor(ctx context.Context, id string) (int, error) {
	last, err := m.LastVersion(ctx, id)
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}

// AssertExists fails with ErrNotFound when id has no current document.
func (m *VersionManager) AssertExists(ctx context.Context, id string) error {
	ok, err := m.c.HasCurrent(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s %q: %w", m.c.name, id, apierr.ErrNotFound)
	}
	return nil
}

// AssertAbsent fails with ErrAlreadyExists when id has a current document.
func (m *VersionManager) AssertAbsent(ctx context.Context, id string) error {
	ok, err := m.c.HasCurrent(ctx, id)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%s %q: %w", m.c.name, id, apierr.ErrAlreadyExists)
	}
	return nil
}
