// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/pulse-training/pulse-gw/pkg/audit"
	"github.com/pulse-training/pulse-gw/pkg/auth"
	"github.com/pulse-training/pulse-gw/pkg/configstore"
	"github.com/pulse-training/pulse-gw/pkg/core/apierr"
	"github.com/pulse-training/pulse-gw/pkg/core/schema"
	"github.com/pulse-training/pulse-gw/pkg/gateway"
	"github.com/pulse-training/pulse-gw/pkg/ratelimit"
)

// adminRoute builds the gateway route for an admin operation.
func adminRoute(name string, mutating bool, onSuccess audit.Action) gateway.Route {
	return gateway.Route{
		Name:      name,
		Access:    gateway.AccessAdmin,
		Mutating:  mutating,
		Category:  ratelimit.CategoryDefault,
		OnSuccess: onSuccess,
	}
}

var (
	routeListPrompts      = adminRoute("admin.prompts.list", false, audit.ActionAdminPromptList)
	routeCreatePrompt     = adminRoute("admin.prompts.create", true, audit.ActionAdminPromptCreate)
	routeGetPrompt        = adminRoute("admin.prompts.get", false, audit.ActionAdminPromptGet)
	routeUpdatePrompt     = adminRoute("admin.prompts.update", true, audit.ActionAdminPromptUpdate)
	routeDeletePrompt     = adminRoute("admin.prompts.delete", true, audit.ActionAdminPromptDelete)
	routePromptVersions   = adminRoute("admin.prompts.versions", false, audit.ActionAdminPromptVersions)
	routePromptVersionGet = adminRoute("admin.prompts.version_get", false, audit.ActionAdminPromptVersionGet)
)

// handleListPrompts handles GET /api/admin/prompts
func (h *Handler) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	h.gated(w, r, routeListPrompts, nil, func(ctx context.Context, _ auth.Identity) (result, error) {
		items, err := h.Prompts.ListCurrent(ctx)
		if err != nil {
			return result{}, err
		}
		if items == nil {
			items = []configstore.PromptSummary{}
		}
		return result{status: http.StatusOK, body: schema.ListResponse[configstore.PromptSummary]{Items: items}}, nil
	})
}

// handleCreatePrompt handles POST /api/admin/prompts
func (h *Handler) handleCreatePrompt(w http.ResponseWriter, r *http.Request) {
	limitBody(w, r, maxAdminBodyBytes)
	details := map[string]any{}
	h.gated(w, r, routeCreatePrompt, details, func(ctx context.Context, id auth.Identity) (result, error) {
		req, err := schema.DecodeCreatePrompt(r.Body)
		if err != nil {
			return result{}, err
		}
		p, err := h.Prompts.PutNew(ctx, req.ID, configstore.PromptFields{
			Title:       req.Title,
			Type:        req.Type,
			AgentID:     req.AgentID,
			Content:     req.Content,
			Description: req.Description,
			Metadata:    req.Metadata,
		}, id.UserID)
		if err != nil {
			return result{}, err
		}
		details["promptId"] = p.ID
		details["version"] = p.Version
		h.logger.Info("Prompt created", "prompt_id", p.ID)
		return result{status: http.StatusCreated, body: p}, nil
	})
}

// handleGetPrompt handles GET /api/admin/prompts/{id}
func (h *Handler) handleGetPrompt(w http.ResponseWriter, r *http.Request) {
	promptID := r.PathValue("id")
	h.gated(w, r, routeGetPrompt, map[string]any{"promptId": promptID}, func(ctx context.Context, _ auth.Identity) (result, error) {
		p, err := h.Prompts.GetCurrent(ctx, promptID)
		if err != nil {
			return result{}, err
		}
		return result{status: http.StatusOK, body: p}, nil
	})
}

// handleUpdatePrompt handles PUT /api/admin/prompts/{id}
func (h *Handler) handleUpdatePrompt(w http.ResponseWriter, r *http.Request) {
	limitBody(w, r, maxAdminBodyBytes)
	promptID := r.PathValue("id")
	details := map[string]any{"promptId": promptID}
	h.gated(w, r, routeUpdatePrompt, details, func(ctx context.Context, id auth.Identity) (result, error) {
		req, err := schema.DecodeUpdatePrompt(r.Body)
		if err != nil {
			return result{}, err
		}
		p, err := h.Prompts.PutUpdate(ctx, promptID, configstore.PromptPatch{
			Title:       req.Title,
			Type:        req.Type,
			AgentID:     req.AgentID,
			Content:     req.Content,
			Description: req.Description,
			Metadata:    req.Metadata,
			Version:     req.Version,
		}, id.UserID)
		if err != nil {
			return result{}, err
		}
		details["version"] = p.Version
		return result{status: http.StatusOK, body: p}, nil
	})
}

// handleDeletePrompt handles DELETE /api/admin/prompts/{id}
func (h *Handler) handleDeletePrompt(w http.ResponseWriter, r *http.Request) {
	promptID := r.PathValue("id")
	details := map[string]any{"promptId": promptID}
	h.gated(w, r, routeDeletePrompt, details, func(ctx context.Context, id auth.Identity) (result, error) {
		p, err := h.Prompts.SoftDelete(ctx, promptID, id.UserID)
		if err != nil {
			return result{}, err
		}
		details["version"] = p.Version
		return result{status: http.StatusOK, body: schema.OKResponse{OK: true, Version: p.Version}}, nil
	})
}

// handleListPromptVersions handles GET /api/admin/prompts/{id}/versions
func (h *Handler) handleListPromptVersions(w http.ResponseWriter, r *http.Request) {
	promptID := r.PathValue("id")
	h.gated(w, r, routePromptVersions, map[string]any{"promptId": promptID}, func(ctx context.Context, _ auth.Identity) (result, error) {
		items, err := h.Prompts.ListVersions(ctx, promptID)
		if err != nil {
			return result{}, err
		}
		if items == nil {
			items = []configstore.VersionInfo{}
		}
		return result{status: http.StatusOK, body: schema.ListResponse[configstore.VersionInfo]{Items: items}}, nil
	})
}

// handleGetPromptVersion handles GET /api/admin/prompts/{id}/versions/{version}
func (h *Handler) handleGetPromptVersion(w http.ResponseWriter, r *http.Request) {
	promptID := r.PathValue("id")
	raw := r.PathValue("version")
	details := map[string]any{"promptId": promptID, "version": raw}
	h.gated(w, r, routePromptVersionGet, details, func(ctx context.Context, _ auth.Identity) (result, error) {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return result{}, apierr.Validation("version must be an integer, got %q", raw)
		}
		snap, err := h.Prompts.GetVersion(ctx, promptID, v)
		if err != nil {
			return result{}, err
		}
		return result{status: http.StatusOK, body: snap}, nil
	})
}
