// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pulse-training/pulse-gw/pkg/auth"
	"github.com/pulse-training/pulse-gw/pkg/configstore"
	"github.com/pulse-training/pulse-gw/pkg/core/apierr"
	"github.com/pulse-training/pulse-gw/pkg/gateway"
	"github.com/pulse-training/pulse-gw/pkg/jobs"
	"github.com/pulse-training/pulse-gw/pkg/observability/logging"
	"github.com/pulse-training/pulse-gw/pkg/observability/metrics"
	"github.com/pulse-training/pulse-gw/pkg/proxy"
	"github.com/pulse-training/pulse-gw/pkg/ratelimit"
	"github.com/pulse-training/pulse-gw/pkg/seed"
)

const (
	maxAdminBodyBytes = 1 << 20
	maxProxyBodyBytes = 10 << 20
)

// Deps are the components served by the handler. Seeder and Proxy are
// optional; their routes are disabled when nil.
type Deps struct {
	Gateway  *gateway.Gateway
	Resolver *auth.Resolver
	Prompts  *configstore.PromptStore
	Agents   *configstore.AgentStore
	Jobs     *jobs.Store
	Seeder   *seed.Seeder
	Proxy    *proxy.Forwarder

	// SeedFile is applied by POST /api/admin/seed.
	SeedFile *seed.File
	// AllowSeed enables POST /api/admin/seed.
	AllowSeed bool
	// TrustProxyHeaders takes the client address from X-Forwarded-For.
	TrustProxyHeaders bool
}

// Handler implements the HTTP adapter
type Handler struct {
	Deps
	logger *logging.Logger
	mux    *http.ServeMux
}

// New creates a new HTTP handler
func New(deps Deps, logger *logging.Logger) *Handler {
	h := &Handler{
		Deps:   deps,
		logger: logger,
		mux:    http.NewServeMux(),
	}

	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.Handle("GET /metrics", metrics.Handler())
	h.mux.HandleFunc("GET /openapi.json", h.handleOpenAPI)

	// Prompts
	h.mux.HandleFunc("GET /api/admin/prompts", h.handleListPrompts)
	h.mux.HandleFunc("POST /api/admin/prompts", h.handleCreatePrompt)
	h.mux.HandleFunc("GET /api/admin/prompts/{id}", h.handleGetPrompt)
	h.mux.HandleFunc("PUT /api/admin/prompts/{id}", h.handleUpdatePrompt)
	h.mux.HandleFunc("DELETE /api/admin/prompts/{id}", h.handleDeletePrompt)
	h.mux.HandleFunc("GET /api/admin/prompts/{id}/versions", h.handleListPromptVersions)
	h.mux.HandleFunc("GET /api/admin/prompts/{id}/versions/{version}", h.handleGetPromptVersion)

	// Agents
	h.mux.HandleFunc("GET /api/admin/agents", h.handleGetAgents)
	h.mux.HandleFunc("PUT /api/admin/agents", h.handleReplaceAgents)

	// Jobs
	h.mux.HandleFunc("POST /api/admin/jobs", h.handleCreateJob)
	h.mux.HandleFunc("GET /api/admin/jobs/{id}", h.handleGetJob)
	h.mux.HandleFunc("POST /api/admin/jobs/{id}/advance", h.handleAdvanceJob)

	// Seed
	h.mux.HandleFunc("POST /api/admin/seed", h.handleSeed)

	// Orchestrator relay
	if h.Proxy != nil {
		h.mux.HandleFunc("POST /api/session/start", h.handleSessionStart)
		h.mux.HandleFunc("POST /api/session/complete", h.handleSessionComplete)
		h.mux.HandleFunc("POST /api/audio/chunk", h.handleAudioChunk)
		h.mux.HandleFunc("POST /api/chat", h.handleChat)
		h.mux.HandleFunc("GET /api/feedback/{sessionId}", h.handleFeedback)
	}

	return h
}

type requestIDKey struct{}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := r.Header.Get("X-Request-Id")
	if reqID == "" {
		reqID = uuid.NewString()
		r.Header.Set("X-Request-Id", reqID)
	}
	w.Header().Set("X-Request-Id", reqID)
	r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, reqID))

	h.logger.Info("Request",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
		"request_id", reqID)

	h.mux.ServeHTTP(w, r)
}

// handleHealth handles health check requests
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// result is what a gated operation hands back for writing.
type result struct {
	status int
	body   any
	// raw, when set, is written verbatim instead of body.
	raw         []byte
	contentType string
}

// gated runs op behind the access gateway and writes its result or error.
func (h *Handler) gated(w http.ResponseWriter, r *http.Request, route gateway.Route, details map[string]any, op func(ctx context.Context, id auth.Identity) (result, error)) {
	id, authErr := h.Resolver.Resolve(r)
	if details == nil {
		details = make(map[string]any)
	}
	var res result
	decision, err := h.Gateway.Do(r.Context(), gateway.Call{
		Route:    route,
		Identity: id,
		AuthErr:  authErr,
		ClientIP: h.clientIP(r),
		Details:  details,
	}, func(ctx context.Context) error {
		var opErr error
		res, opErr = op(auth.WithIdentity(ctx, id), id)
		return opErr
	})

	setRateLimitHeaders(w, decision)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if res.raw != nil {
		ct := res.contentType
		if ct == "" {
			ct = "application/json"
		}
		w.Header().Set("Content-Type", ct)
		w.WriteHeader(res.status)
		w.Write(res.raw)
		return
	}
	writeJSON(w, res.status, res.body)
}

func setRateLimitHeaders(w http.ResponseWriter, d ratelimit.Decision) {
	if d.Limit <= 0 || d.ResetAt.IsZero() {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
	if !d.Allowed {
		secs := int(time.Until(d.ResetAt).Seconds()) + 1
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// errorEnvelope is the JSON error body.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string    `json:"requestId"`
	Timestamp time.Time `json:"timestamp"`
}

// writeError writes an error response. Upstream failures with a body are
// relayed with the upstream status and body unchanged.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var upErr *apierr.UpstreamError
	if errors.As(err, &upErr) && len(upErr.Body) > 0 {
		ct := upErr.ContentType
		if ct == "" {
			ct = "application/json"
		}
		w.Header().Set("Content-Type", ct)
		w.WriteHeader(upErr.Status)
		w.Write(upErr.Body)
		return
	}

	kind := apierr.KindOf(err)
	status := kind.Status()
	if upErr != nil && upErr.Status >= 400 {
		status = upErr.Status
	}
	if !kind.Expected() {
		h.logger.Warn("Request failed", "path", r.URL.Path, "kind", kind, "error", err)
	}

	var env errorEnvelope
	env.Error.Code = string(kind)
	env.Error.Message = apierr.PublicMessage(err)
	env.RequestID, _ = r.Context().Value(requestIDKey{}).(string)
	env.Timestamp = time.Now().UTC()
	writeJSON(w, status, env)
}

// clientIP returns the caller address used for rate limiting and audit.
func (h *Handler) clientIP(r *http.Request) string {
	if h.TrustProxyHeaders {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// limitBody caps the request body size.
func limitBody(w http.ResponseWriter, r *http.Request, n int64) {
	r.Body = http.MaxBytesReader(w, r.Body, n)
}
