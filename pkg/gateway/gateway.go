// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package gateway enforces who may call an operation, how often, and records
// exactly one audit entry per request.
//
// Checks run in a fixed order and stop at the first failure:
//
//  1. write-enable flag, for mutating routes only, whoever the caller is
//  2. caller identity: invalid credentials, then role
//  3. rate limit
//  4. the operation itself
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pulse-training/pulse-gw/pkg/audit"
	"github.com/pulse-training/pulse-gw/pkg/auth"
	"github.com/pulse-training/pulse-gw/pkg/core/apierr"
	"github.com/pulse-training/pulse-gw/pkg/observability/metrics"
	"github.com/pulse-training/pulse-gw/pkg/ratelimit"
)

// Access is the privilege a route requires.
type Access int

const (
	// AccessAdmin requires an elevated role.
	AccessAdmin Access = iota
	// AccessUser requires an authenticated caller, unless anonymous proxy
	// access is enabled.
	AccessUser
)

// Route describes one gated operation.
type Route struct {
	Name     string // metrics label, e.g. "admin.prompts.create"
	Access   Access
	Mutating bool
	Category ratelimit.Category

	// OnSuccess is recorded when the operation succeeds. Empty means a
	// successful call is not audited.
	OnSuccess audit.Action
}

// Call is one inbound request as seen by the gateway.
type Call struct {
	Route    Route
	Identity auth.Identity
	AuthErr  error // from credential resolution, if any
	ClientIP string

	// Details are attached to the audit entry. Operations may add to the
	// map while they run.
	Details map[string]any
}

// Config holds the gateway switches.
type Config struct {
	// EditEnabled allows mutating admin routes.
	EditEnabled bool

	// AllowAnonymousProxy lets unauthenticated callers reach proxy routes.
	AllowAnonymousProxy bool
}

// Gateway runs operations behind the access checks.
type Gateway struct {
	cfg     Config
	limiter *ratelimit.Limiter
	audit   *audit.Recorder
	logger  *slog.Logger
}

// New returns a Gateway. A nil logger uses slog.Default().
func New(cfg Config, limiter *ratelimit.Limiter, recorder *audit.Recorder, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{cfg: cfg, limiter: limiter, audit: recorder, logger: logger}
}

// Rejection reasons recorded in audit details.
const (
	reasonBadCredentials = "invalid_credentials"
	reasonEditDisabled   = "edit_disabled"
	reasonRole           = "insufficient_role"
	reasonQuota          = "quota_exceeded"
	reasonLimiterFailed  = "limiter_unavailable"
)

// Do runs op if every check passes. The returned error is classified with
// apierr; the Decision is the rate limit outcome when the limiter ran.
func (g *Gateway) Do(ctx context.Context, call Call, op func(ctx context.Context) error) (ratelimit.Decision, error) {
	start := time.Now()
	if call.Details == nil {
		call.Details = make(map[string]any)
	}

	decision, err := g.run(ctx, &call, op)

	outcome := "ok"
	if err != nil {
		outcome = string(apierr.KindOf(err))
	}
	metrics.RequestsTotal.WithLabelValues(call.Route.Name, outcome).Inc()
	metrics.RequestDuration.WithLabelValues(call.Route.Name).Observe(time.Since(start).Seconds())
	return decision, err
}

func (g *Gateway) run(ctx context.Context, call *Call, op func(ctx context.Context) error) (ratelimit.Decision, error) {
	var decision ratelimit.Decision

	if call.Route.Mutating && !g.cfg.EditEnabled {
		g.record(ctx, call, audit.ActionError, map[string]any{"reason": reasonEditDisabled})
		return decision, fmt.Errorf("%s: editing is disabled: %w", call.Route.Name, apierr.ErrForbidden)
	}

	if call.AuthErr != nil {
		err := call.AuthErr
		if !errors.Is(err, apierr.ErrUnauthorized) {
			err = fmt.Errorf("%w: %v", apierr.ErrUnauthorized, err)
		}
		g.record(ctx, call, audit.ActionLoginFailed, map[string]any{"reason": reasonBadCredentials})
		return decision, err
	}

	if !g.permitted(call.Route, call.Identity) {
		g.record(ctx, call, audit.ActionError, map[string]any{"reason": reasonRole, "role": string(call.Identity.Role)})
		return decision, fmt.Errorf("%s: role %s not permitted: %w", call.Route.Name, call.Identity.Role, apierr.ErrForbidden)
	}

	if g.limiter != nil {
		d, err := g.limiter.Allow(ctx, clientID(call), call.Route.Category)
		decision = d
		if err != nil {
			g.logger.Error("rate limiter unavailable, rejecting request", "route", call.Route.Name, "error", err)
			metrics.RateLimitRejections.WithLabelValues(string(call.Route.Category)).Inc()
			g.record(ctx, call, audit.ActionRateLimited, map[string]any{"reason": reasonLimiterFailed, "category": string(call.Route.Category)})
			return decision, fmt.Errorf("%s: %w", call.Route.Name, apierr.ErrRateLimited)
		}
		if !d.Allowed {
			metrics.RateLimitRejections.WithLabelValues(string(call.Route.Category)).Inc()
			g.record(ctx, call, audit.ActionRateLimited, map[string]any{
				"reason":   reasonQuota,
				"category": string(call.Route.Category),
				"limit":    d.Limit,
			})
			return decision, fmt.Errorf("%s: %w", call.Route.Name, apierr.ErrRateLimited)
		}
	}

	if err := op(ctx); err != nil {
		extra := map[string]any{"reason": string(apierr.KindOf(err))}
		var upErr *apierr.UpstreamError
		if errors.As(err, &upErr) {
			extra["upstreamStatus"] = upErr.Status
		}
		if !apierr.KindOf(err).Expected() {
			g.logger.Error("operation failed", "route", call.Route.Name, "error", err)
		}
		g.record(ctx, call, audit.ActionError, extra)
		return decision, err
	}

	if call.Route.OnSuccess != "" {
		g.record(ctx, call, call.Route.OnSuccess, nil)
	}
	return decision, nil
}

func (g *Gateway) permitted(r Route, id auth.Identity) bool {
	switch r.Access {
	case AccessAdmin:
		return id.IsAdmin()
	case AccessUser:
		return id.Authenticated() || g.cfg.AllowAnonymousProxy
	default:
		return false
	}
}

func (g *Gateway) record(ctx context.Context, call *Call, action audit.Action, extra map[string]any) {
	if g.audit == nil {
		return
	}
	details := make(map[string]any, len(call.Details)+len(extra)+1)
	details["route"] = call.Route.Name
	for k, v := range call.Details {
		details[k] = v
	}
	for k, v := range extra {
		details[k] = v
	}
	err := g.audit.Record(ctx, action, audit.Fields{
		ActorID: call.Identity.UserID,
		Email:   call.Identity.Email,
		IP:      call.ClientIP,
		Details: details,
	})
	if err != nil {
		g.logger.Error("audit record rejected", "action", action, "error", err)
	}
}

// clientID keys the rate limit: the user id when known, else the remote
// address.
func clientID(call *Call) string {
	if call.Identity.Authenticated() && call.Identity.UserID != "" {
		return "user:" + call.Identity.UserID
	}
	return "ip:" + call.ClientIP
}
