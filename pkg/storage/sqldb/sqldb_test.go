// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package sqldb

import (
	"context"
	"testing"
)

func TestDialectFor(t *testing.T) {
	tests := []struct {
		name string
		want Dialect
		ok   bool
	}{
		{"postgres", Postgres, true},
		{"pgx", Postgres, true},
		{"sqlite", SQLite, true},
		{"sqlite3", SQLite, true},
		{"mysql", Dialect{}, false},
	}
	for _, tt := range tests {
		got, err := DialectFor(tt.name)
		if (err == nil) != tt.ok {
			t.Errorf("DialectFor(%q) error = %v, want ok=%v", tt.name, err, tt.ok)
			continue
		}
		if got != tt.want {
			t.Errorf("DialectFor(%q) = %s, want %s", tt.name, got.Name, tt.want.Name)
		}
	}
}

func TestBind(t *testing.T) {
	if got := Postgres.Bind(3); got != "$3" {
		t.Errorf("Postgres.Bind(3) = %q", got)
	}
	if got := SQLite.Bind(3); got != "?" {
		t.Errorf("SQLite.Bind(3) = %q", got)
	}
}

func TestOpenSQLiteAndMigrate(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, "sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx, `CREATE TABLE IF NOT EXISTS t (id TEXT PRIMARY KEY)`); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO t (id) VALUES (?)`, "a"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM t`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestOpen_RequiresDSN(t *testing.T) {
	if _, err := Open(context.Background(), "sqlite", ""); err == nil {
		t.Fatal("expected error for empty dsn")
	}
}
