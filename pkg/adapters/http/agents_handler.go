// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pulse-training/pulse-gw/pkg/audit"
	"github.com/pulse-training/pulse-gw/pkg/auth"
	"github.com/pulse-training/pulse-gw/pkg/configstore"
	"github.com/pulse-training/pulse-gw/pkg/core/apierr"
	"github.com/pulse-training/pulse-gw/pkg/core/schema"
)

var (
	routeGetAgents     = adminRoute("admin.agents.get", false, audit.ActionAdminAgentsGet)
	routeReplaceAgents = adminRoute("admin.agents.update", true, audit.ActionAdminAgentsUpdate)
)

// handleGetAgents handles GET /api/admin/agents
func (h *Handler) handleGetAgents(w http.ResponseWriter, r *http.Request) {
	h.gated(w, r, routeGetAgents, nil, func(ctx context.Context, _ auth.Identity) (result, error) {
		set, err := h.Agents.Get(ctx)
		if err != nil {
			return result{}, err
		}
		if set.Agents == nil {
			set.Agents = []configstore.Agent{}
		}
		return result{status: http.StatusOK, body: set}, nil
	})
}

// handleReplaceAgents handles PUT /api/admin/agents
func (h *Handler) handleReplaceAgents(w http.ResponseWriter, r *http.Request) {
	limitBody(w, r, maxAdminBodyBytes)
	details := map[string]any{}
	h.gated(w, r, routeReplaceAgents, details, func(ctx context.Context, id auth.Identity) (result, error) {
		var req schema.ReplaceAgentsRequest
		if err := schema.DecodeStrict(r.Body, &req); err != nil {
			return result{}, err
		}
		agents := make([]configstore.Agent, 0, len(req.Agents))
		for i, raw := range req.Agents {
			var a configstore.Agent
			if err := json.Unmarshal(raw, &a); err != nil {
				return result{}, apierr.Validation("agents[%d]: %v", i, err)
			}
			agents = append(agents, a)
		}
		set, err := h.Agents.Replace(ctx, agents, id.UserID)
		if err != nil {
			return result{}, err
		}
		details["version"] = set.Version
		details["count"] = len(set.Agents)
		return result{status: http.StatusOK, body: schema.OKResponse{OK: true, Version: set.Version}}, nil
	})
}
