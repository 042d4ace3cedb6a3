// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"context"
	"net/http"

	"github.com/pulse-training/pulse-gw/pkg/audit"
	"github.com/pulse-training/pulse-gw/pkg/auth"
	"github.com/pulse-training/pulse-gw/pkg/core/schema"
	"github.com/pulse-training/pulse-gw/pkg/jobs"
)

var (
	routeCreateJob  = adminRoute("admin.jobs.create", true, audit.ActionAdminJobCreate)
	routeGetJob     = adminRoute("admin.jobs.get", false, audit.ActionAdminJobGet)
	routeAdvanceJob = adminRoute("admin.jobs.advance", true, audit.ActionAdminJobAdvance)
)

// handleCreateJob handles POST /api/admin/jobs
func (h *Handler) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	limitBody(w, r, maxAdminBodyBytes)
	details := map[string]any{}
	h.gated(w, r, routeCreateJob, details, func(ctx context.Context, id auth.Identity) (result, error) {
		var req schema.CreateJobRequest
		if err := schema.DecodeStrict(r.Body, &req); err != nil {
			return result{}, err
		}
		j, err := h.Jobs.Create(ctx, req.Kind, id.UserID)
		if err != nil {
			return result{}, err
		}
		details["jobId"] = j.ID
		details["kind"] = j.Kind
		return result{status: http.StatusCreated, body: j}, nil
	})
}

// handleGetJob handles GET /api/admin/jobs/{id}
func (h *Handler) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	h.gated(w, r, routeGetJob, map[string]any{"jobId": jobID}, func(ctx context.Context, _ auth.Identity) (result, error) {
		j, err := h.Jobs.Get(ctx, jobID)
		if err != nil {
			return result{}, err
		}
		return result{status: http.StatusOK, body: j}, nil
	})
}

// handleAdvanceJob handles POST /api/admin/jobs/{id}/advance
func (h *Handler) handleAdvanceJob(w http.ResponseWriter, r *http.Request) {
	limitBody(w, r, maxAdminBodyBytes)
	jobID := r.PathValue("id")
	details := map[string]any{"jobId": jobID}
	h.gated(w, r, routeAdvanceJob, details, func(ctx context.Context, id auth.Identity) (result, error) {
		var req schema.AdvanceJobRequest
		if err := schema.DecodeStrict(r.Body, &req); err != nil {
			return result{}, err
		}
		status, err := jobs.ParseStatus(req.Status)
		if err != nil {
			return result{}, err
		}
		j, err := h.Jobs.Advance(ctx, jobID, jobs.Update{
			Status:   status,
			Progress: req.Progress,
			Message:  req.Message,
			Result:   req.Result,
		}, id.UserID)
		if err != nil {
			return result{}, err
		}
		details["status"] = string(j.Status)
		details["version"] = j.Version
		return result{status: http.StatusOK, body: j}, nil
	})
}
