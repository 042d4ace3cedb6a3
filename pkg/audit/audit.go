// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package audit records an append-only trail of security and administrative
// events. The set of actions is closed; recording an unknown action is an
// error.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/pulse-training/pulse-gw/pkg/observability/metrics"
	"github.com/pulse-training/pulse-gw/pkg/provider"
)

// Action names an audited event.
type Action string

const (
	ActionLogin        Action = "LOGIN"
	ActionLogout       Action = "LOGOUT"
	ActionLoginFailed  Action = "LOGIN_FAILED"
	ActionSessionStart Action = "SESSION_START"
	ActionSessionEnd   Action = "SESSION_END"
	ActionRateLimited  Action = "RATE_LIMITED"
	ActionError        Action = "ERROR"

	ActionAdminPromptList       Action = "ADMIN_PROMPT_LIST"
	ActionAdminPromptGet        Action = "ADMIN_PROMPT_GET"
	ActionAdminPromptCreate     Action = "ADMIN_PROMPT_CREATE"
	ActionAdminPromptUpdate     Action = "ADMIN_PROMPT_UPDATE"
	ActionAdminPromptDelete     Action = "ADMIN_PROMPT_DELETE"
	ActionAdminPromptVersions   Action = "ADMIN_PROMPT_VERSIONS"
	ActionAdminPromptVersionGet Action = "ADMIN_PROMPT_VERSION_GET"
	ActionAdminAgentsGet        Action = "ADMIN_AGENTS_GET"
	ActionAdminAgentsUpdate     Action = "ADMIN_AGENTS_UPDATE"
	ActionAdminJobCreate        Action = "ADMIN_JOB_CREATE"
	ActionAdminJobGet           Action = "ADMIN_JOB_GET"
	ActionAdminJobAdvance       Action = "ADMIN_JOB_ADVANCE"
	ActionAdminSeed             Action = "ADMIN_SEED"
)

var knownActions = map[Action]bool{
	ActionLogin: true, ActionLogout: true, ActionLoginFailed: true,
	ActionSessionStart: true, ActionSessionEnd: true,
	ActionRateLimited: true, ActionError: true,
	ActionAdminPromptList: true, ActionAdminPromptGet: true,
	ActionAdminPromptCreate: true, ActionAdminPromptUpdate: true,
	ActionAdminPromptDelete: true, ActionAdminPromptVersions: true,
	ActionAdminPromptVersionGet: true, ActionAdminAgentsGet: true,
	ActionAdminAgentsUpdate: true, ActionAdminJobCreate: true,
	ActionAdminJobGet: true, ActionAdminJobAdvance: true,
	ActionAdminSeed: true,
}

// Valid reports whether a is part of the audit taxonomy.
func (a Action) Valid() bool { return knownActions[a] }

// ErrUnknownAction is returned when recording an action outside the taxonomy.
var ErrUnknownAction = errors.New("unknown audit action")

// Entry is one immutable audit record.
type Entry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Action    Action         `json:"action"`
	ActorID   string         `json:"actorId,omitempty"`
	Email     string         `json:"email,omitempty"`
	IP        string         `json:"ip,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// Fields are the caller-supplied parts of an entry.
type Fields struct {
	ActorID string
	Email   string
	IP      string
	Details map[string]any
}

// Sink persists entries. Sinks only ever append.
type Sink interface {
	Write(ctx context.Context, e Entry) error
	Close() error
}

// Sinks is the registry of audit sink backends.
var Sinks = provider.NewRegistry[Sink]("audit_sink")

// Recorder stamps and writes entries to a Sink.
type Recorder struct {
	sink   Sink
	logger *slog.Logger
	now    func() time.Time
}

// NewRecorder returns a Recorder writing to sink. A nil logger uses
// slog.Default().
func NewRecorder(sink Sink, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{sink: sink, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Record writes one entry. Only an unknown action is reported as an error;
// sink failures are logged so that auditing never fails the request.
func (r *Recorder) Record(ctx context.Context, action Action, f Fields) error {
	if !action.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	e := Entry{
		ID:        uuid.NewString(),
		Timestamp: r.now(),
		Action:    action,
		ActorID:   f.ActorID,
		Email:     f.Email,
		IP:        f.IP,
		Details:   maps.Clone(f.Details),
	}
	if err := r.sink.Write(ctx, e); err != nil {
		r.logger.Error("audit sink write failed", "action", action, "entry_id", e.ID, "error", err)
		return nil
	}
	metrics.AuditEntries.WithLabelValues(string(action)).Inc()
	return nil
}

// Close closes the underlying sink.
func (r *Recorder) Close() error {
	return r.sink.Close()
}
