// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "encoding/json"

// ReplaceAgentsRequest replaces the whole agent list. Agents are kept as raw
// JSON so that fields unknown to the gateway survive the round trip.
type ReplaceAgentsRequest struct {
	Agents []json.RawMessage `json:"agents" validate:"required,max=500"`
}

// CreateJobRequest represents a request to create a job
type CreateJobRequest struct {
	Kind string `json:"kind" validate:"required,max=64"`
}

// AdvanceJobRequest moves a job to a new status
type AdvanceJobRequest struct {
	Status   string         `json:"status" validate:"required,oneof=pending running succeeded failed cancelled"`
	Progress *int           `json:"progress,omitempty" validate:"omitnil,min=0,max=100"`
	Message  string         `json:"message,omitempty" validate:"max=2000"`
	Result   map[string]any `json:"result,omitempty"`
}

// SeedResults counts what a seed run did
type SeedResults struct {
	Prompts int `json:"prompts"`
	Agents  int `json:"agents"`
	Skipped int `json:"skipped"`
}

// SeedResponse is returned by the seed endpoint
type SeedResponse struct {
	OK      bool        `json:"ok"`
	Results SeedResults `json:"results"`
}
