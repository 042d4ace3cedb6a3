// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pulse-training/pulse-gw/pkg/audit"
	"github.com/pulse-training/pulse-gw/pkg/auth"
	"github.com/pulse-training/pulse-gw/pkg/core/apierr"
	"github.com/pulse-training/pulse-gw/pkg/core/schema"
)

var routeSeed = adminRoute("admin.seed", true, audit.ActionAdminSeed)

// handleSeed handles POST /api/admin/seed
func (h *Handler) handleSeed(w http.ResponseWriter, r *http.Request) {
	details := map[string]any{}
	h.gated(w, r, routeSeed, details, func(ctx context.Context, _ auth.Identity) (result, error) {
		if !h.AllowSeed || h.Seeder == nil || h.SeedFile == nil {
			return result{}, fmt.Errorf("admin seeding is disabled: %w", apierr.ErrForbidden)
		}
		res, err := h.Seeder.Apply(ctx, h.SeedFile)
		if err != nil {
			return result{}, err
		}
		details["prompts"] = res.Prompts
		details["agents"] = res.Agents
		details["skipped"] = res.Skipped
		return result{status: http.StatusOK, body: schema.SeedResponse{OK: true, Results: res}}, nil
	})
}
