// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pulse-training/pulse-gw/pkg/storage/sqldb"
)

func init() {
	for _, engine := range []string{"postgres", "sqlite"} {
		Sinks.Register(engine, func(ctx context.Context, params map[string]string) (Sink, error) {
			db, err := sqldb.Open(ctx, engine, params["dsn"])
			if err != nil {
				return nil, err
			}
			s, err := NewSQLSink(ctx, db)
			if err != nil {
				db.Close()
				return nil, err
			}
			s.ownsDB = true
			return s, nil
		})
	}
}

// SQLSink appends entries to the audit_log table. It never updates or deletes
// rows.
type SQLSink struct {
	db     *sqldb.DB
	ownsDB bool
}

// NewSQLSink creates the audit_log table if needed.
func NewSQLSink(ctx context.Context, db *sqldb.DB) (*SQLSink, error) {
	err := db.Migrate(ctx,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS audit_log (
			id TEXT PRIMARY KEY,
			ts %s NOT NULL,
			action TEXT NOT NULL,
			actor_id TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			ip TEXT NOT NULL DEFAULT '',
			details TEXT NOT NULL DEFAULT '{}'
		)`, db.Dialect.TimeType),
		`CREATE INDEX IF NOT EXISTS idx_audit_log_ts ON audit_log(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_log_action ON audit_log(action)`,
	)
	if err != nil {
		return nil, err
	}
	return &SQLSink{db: db}, nil
}

// Write inserts e.
func (s *SQLSink) Write(ctx context.Context, e Entry) error {
	details := []byte("{}")
	if len(e.Details) > 0 {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("encode audit details: %w", err)
		}
		details = b
	}
	d := s.db.Dialect
	q := fmt.Sprintf(`INSERT INTO audit_log (id, ts, action, actor_id, email, ip, details)
		VALUES (%s, %s, %s, %s, %s, %s, %s)`,
		d.Bind(1), d.Bind(2), d.Bind(3), d.Bind(4), d.Bind(5), d.Bind(6), d.Bind(7))
	_, err := s.db.ExecContext(ctx, q, e.ID, e.Timestamp, string(e.Action), e.ActorID, e.Email, e.IP, string(details))
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// recent returns up to limit entries, newest first.
func (s *SQLSink) recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	q := fmt.Sprintf(`SELECT id, ts, action, actor_id, email, ip, details
		FROM audit_log ORDER BY ts DESC, id DESC LIMIT %s`, s.db.Dialect.Bind(1))
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			action  string
			ts      time.Time
			details string
		)
		if err := rows.Scan(&e.ID, &ts, &action, &e.ActorID, &e.Email, &e.IP, &details); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Timestamp = ts.UTC()
		e.Action = Action(action)
		if details != "" && details != "{}" {
			if err := json.Unmarshal([]byte(details), &e.Details); err != nil {
				return nil, fmt.Errorf("decode audit details %s: %w", e.ID, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database if the sink opened it.
func (s *SQLSink) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}
