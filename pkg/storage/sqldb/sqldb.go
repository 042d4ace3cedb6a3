// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqldb opens the SQL databases shared by the blob store and the audit
// sink. PostgreSQL goes through pgx's database/sql driver and SQLite through
// the pure-Go modernc driver, so the binary stays cgo-free.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect captures the few syntax differences between the supported engines.
type Dialect struct {
	Name       string
	driver     string
	BlobType   string
	TimeType   string
	positional bool
}

var (
	Postgres = Dialect{Name: "postgres", driver: "pgx", BlobType: "BYTEA", TimeType: "TIMESTAMPTZ", positional: true}
	SQLite   = Dialect{Name: "sqlite", driver: "sqlite", BlobType: "BLOB", TimeType: "TIMESTAMP"}
)

// Bind returns the placeholder for the n-th (1-based) statement argument.
func (d Dialect) Bind(n int) string {
	if d.positional {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// DialectFor resolves a dialect by engine name.
func DialectFor(name string) (Dialect, error) {
	switch name {
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported sql dialect %q", name)
	}
}

// DB wraps a database handle with its dialect.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open connects to dsn with the named engine and verifies the connection.
// For SQLite, dsn is a file path or ":memory:".
func Open(ctx context.Context, engine, dsn string) (*DB, error) {
	d, err := DialectFor(engine)
	if err != nil {
		return nil, err
	}
	if dsn == "" {
		return nil, fmt.Errorf("%s: dsn is required", d.Name)
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s open: %w", d.Name, err)
	}
	if d == SQLite {
		// A second connection to ":memory:" would see a different database.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s ping: %w", d.Name, err)
	}
	return &DB{DB: db, Dialect: d}, nil
}

// Migrate executes each DDL statement in order.
func (db *DB) Migrate(ctx context.Context, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s create tables: %w", db.Dialect.Name, err)
		}
	}
	return nil
}
