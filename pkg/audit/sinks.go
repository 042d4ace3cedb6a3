// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"log/slog"
	"maps"
	"os"
	"sync"
)

func init() {
	Sinks.Register("log", func(_ context.Context, _ map[string]string) (Sink, error) {
		return NewLogSink(slog.New(slog.NewJSONHandler(os.Stdout, nil))), nil
	})
	Sinks.Register("memory", func(_ context.Context, _ map[string]string) (Sink, error) {
		return NewMemorySink(), nil
	})
}

// LogSink writes each entry as one structured log record.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink that logs through logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Write emits the entry at info level under the "audit" message.
func (s *LogSink) Write(ctx context.Context, e Entry) error {
	attrs := []slog.Attr{
		slog.String("id", e.ID),
		slog.Time("timestamp", e.Timestamp),
		slog.String("action", string(e.Action)),
	}
	if e.ActorID != "" {
		attrs = append(attrs, slog.String("actor_id", e.ActorID))
	}
	if e.Email != "" {
		attrs = append(attrs, slog.String("email", e.Email))
	}
	if e.IP != "" {
		attrs = append(attrs, slog.String("ip", e.IP))
	}
	if len(e.Details) > 0 {
		attrs = append(attrs, slog.Any("details", e.Details))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
	return nil
}

// Close is a no-op.
func (s *LogSink) Close() error { return nil }

// MemorySink keeps entries in memory. Used by tests and local development.
type MemorySink struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Write appends e.
func (s *MemorySink) Write(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

// Entries returns copies of every recorded entry in order.
func (s *MemorySink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		e.Details = maps.Clone(e.Details)
		out[i] = e
	}
	return out
}

// Close is a no-op.
func (s *MemorySink) Close() error { return nil }
