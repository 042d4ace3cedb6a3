// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/pulse-training/pulse-gw/pkg/audit"
	"github.com/pulse-training/pulse-gw/pkg/auth"
	"github.com/pulse-training/pulse-gw/pkg/core/apierr"
	"github.com/pulse-training/pulse-gw/pkg/gateway"
	"github.com/pulse-training/pulse-gw/pkg/proxy"
	"github.com/pulse-training/pulse-gw/pkg/ratelimit"
)

var (
	routeSessionStart = gateway.Route{
		Name:      "proxy.session.start",
		Access:    gateway.AccessUser,
		Category:  ratelimit.CategorySession,
		OnSuccess: audit.ActionSessionStart,
	}
	routeSessionComplete = gateway.Route{
		Name:      "proxy.session.complete",
		Access:    gateway.AccessUser,
		Category:  ratelimit.CategorySession,
		OnSuccess: audit.ActionSessionEnd,
	}
	routeAudioChunk = gateway.Route{Name: "proxy.audio.chunk", Access: gateway.AccessUser, Category: ratelimit.CategoryChat}
	routeChat       = gateway.Route{Name: "proxy.chat", Access: gateway.AccessUser, Category: ratelimit.CategoryChat}
	routeFeedback   = gateway.Route{Name: "proxy.feedback", Access: gateway.AccessUser, Category: ratelimit.CategoryDefault}
)

// handleSessionStart handles POST /api/session/start
func (h *Handler) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	h.relay(w, r, routeSessionStart, "/session/start", true)
}

// handleSessionComplete handles POST /api/session/complete
func (h *Handler) handleSessionComplete(w http.ResponseWriter, r *http.Request) {
	h.relay(w, r, routeSessionComplete, "/session/complete", true)
}

// handleAudioChunk handles POST /api/audio/chunk
func (h *Handler) handleAudioChunk(w http.ResponseWriter, r *http.Request) {
	h.relay(w, r, routeAudioChunk, "/audio/chunk", false)
}

// handleChat handles POST /api/chat
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	h.relay(w, r, routeChat, "/chat", false)
}

// handleFeedback handles GET /api/feedback/{sessionId}
func (h *Handler) handleFeedback(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")
	h.relay(w, r, routeFeedback, "/feedback/"+url.PathEscape(sessionID), false)
}

// relay forwards the request body to the orchestrator. Session payloads are
// enriched with the caller identity first.
func (h *Handler) relay(w http.ResponseWriter, r *http.Request, route gateway.Route, path string, enrich bool) {
	limitBody(w, r, maxProxyBodyBytes)
	details := map[string]any{}
	h.gated(w, r, route, details, func(ctx context.Context, id auth.Identity) (result, error) {
		var body []byte
		if r.Method != http.MethodGet {
			b, err := io.ReadAll(r.Body)
			if err != nil {
				return result{}, apierr.Validation("failed to read request body: %v", err)
			}
			body = b
		}
		if enrich {
			b, err := gateway.EnrichSessionPayload(body, id)
			if err != nil {
				return result{}, err
			}
			body = b
		}

		resp, err := h.Proxy.Forward(ctx, proxy.Request{
			Method: r.Method,
			Path:   path,
			Query:  r.URL.RawQuery,
			Body:   body,
			Header: r.Header,
			UserID: id.UserID,
		})
		if err != nil {
			return result{}, err
		}
		details["upstreamStatus"] = resp.Status
		raw := resp.Body
		if raw == nil {
			raw = []byte{}
		}
		return result{status: resp.Status, raw: raw, contentType: resp.ContentType}, nil
	})
}
