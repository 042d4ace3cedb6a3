// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package blobstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pulse-training/pulse-gw/pkg/provider"
)

// ErrBlobNotFound is returned when no blob is stored under a key.
var ErrBlobNotFound = errors.New("blob not found")

// ErrInvalidKey is returned for keys that are empty, absolute, or escape the
// store root.
var ErrInvalidKey = errors.New("invalid blob key")

// Providers is the registry of blob store backend implementations.
// Import implementation packages with blank imports to register them:
//
//	import _ "github.com/pulse-training/pulse-gw/pkg/blobstore/memory"
//	import _ "github.com/pulse-training/pulse-gw/pkg/blobstore/filesystem"
//	import _ "github.com/pulse-training/pulse-gw/pkg/blobstore/s3"
//	import _ "github.com/pulse-training/pulse-gw/pkg/blobstore/sqlstore"
var Providers = provider.NewRegistry[BlobStore]("blob_store")

// BlobStore is an opaque key to bytes store. Keys are slash-separated paths
// such as "prompts/greeting/versions/2.json". Put always overwrites; there is
// no conditional write.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	// List returns every key starting with prefix, sorted ascending.
	List(ctx context.Context, prefix string) ([]string, error)
	Close(ctx context.Context) error
}

// ValidateKey rejects keys that could not be stored portably across backends.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}
