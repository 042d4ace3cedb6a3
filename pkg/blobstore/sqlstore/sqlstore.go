// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlstore implements blobstore.BlobStore on a single SQL table, for
// deployments that already run PostgreSQL or want a single-file SQLite store.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/pulse-training/pulse-gw/pkg/blobstore"
	"github.com/pulse-training/pulse-gw/pkg/storage/sqldb"
)

func init() {
	for _, engine := range []string{"postgres", "sqlite"} {
		blobstore.Providers.Register(engine, func(ctx context.Context, params map[string]string) (blobstore.BlobStore, error) {
			db, err := sqldb.Open(ctx, engine, params["dsn"])
			if err != nil {
				return nil, err
			}
			s, err := New(ctx, db, params["table"])
			if err != nil {
				db.Close()
				return nil, err
			}
			s.ownsDB = true
			return s, nil
		})
	}
}

// compile-time check
var _ blobstore.BlobStore = (*Store)(nil)

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Store keeps every blob as one row keyed by its blob key.
type Store struct {
	db     *sqldb.DB
	table  string
	ownsDB bool
}

// New creates the blob table if needed. An empty table defaults to "blobs".
func New(ctx context.Context, db *sqldb.DB, table string) (*Store, error) {
	if table == "" {
		table = "blobs"
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("sqlstore: invalid table name %q", table)
	}
	s := &Store{db: db, table: table}

	err := db.Migrate(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			blob_key TEXT PRIMARY KEY,
			content %s NOT NULL,
			content_type TEXT NOT NULL DEFAULT '',
			updated_at %s NOT NULL
		)`, table, db.Dialect.BlobType, db.Dialect.TimeType))
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the content stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	q := fmt.Sprintf(`SELECT content FROM %s WHERE blob_key = %s`, s.table, s.db.Dialect.Bind(1))

	var data []byte
	if err := s.db.QueryRowContext(ctx, q, key).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("blob %s: %w", key, blobstore.ErrBlobNotFound)
		}
		return nil, fmt.Errorf("get blob %s: %w", key, err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// Put upserts the row for key.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := blobstore.ValidateKey(key); err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}
	d := s.db.Dialect
	q := fmt.Sprintf(`INSERT INTO %s (blob_key, content, content_type, updated_at)
		VALUES (%s, %s, %s, %s)
		ON CONFLICT (blob_key) DO UPDATE SET
			content = excluded.content,
			content_type = excluded.content_type,
			updated_at = excluded.updated_at`,
		s.table, d.Bind(1), d.Bind(2), d.Bind(3), d.Bind(4))

	if _, err := s.db.ExecContext(ctx, q, key, data, contentType, time.Now().UTC()); err != nil {
		return fmt.Errorf("put blob %s: %w", key, err)
	}
	return nil
}

// Exists reports whether a row exists for key.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	q := fmt.Sprintf(`SELECT 1 FROM %s WHERE blob_key = %s`, s.table, s.db.Dialect.Bind(1))

	var one int
	if err := s.db.QueryRowContext(ctx, q, key).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("exists blob %s: %w", key, err)
	}
	return true, nil
}

// List returns keys under prefix. The prefix is compared with substr rather
// than LIKE so that '_' and '%' in keys need no escaping.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	d := s.db.Dialect
	q := fmt.Sprintf(`SELECT blob_key FROM %s WHERE substr(blob_key, 1, %s) = %s`,
		s.table, d.Bind(1), d.Bind(2))

	rows, err := s.db.QueryContext(ctx, q, utf8.RuneCountInString(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("list blobs %q: %w", prefix, err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan blob key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list blobs %q: %w", prefix, err)
	}
	// Collation order differs between engines; callers expect byte order.
	sort.Strings(keys)
	return keys, nil
}

// Close closes the database if the store opened it.
func (s *Store) Close(_ context.Context) error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}
