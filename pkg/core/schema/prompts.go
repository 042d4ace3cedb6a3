// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"io"
	"strings"
)

// CreatePromptRequest represents a request to create a prompt
type CreatePromptRequest struct {
	ID          string         `json:"id,omitempty" validate:"max=128"`
	Title       string         `json:"title" validate:"required,max=200"`
	Type        string         `json:"type,omitempty" validate:"max=64"`
	AgentID     string         `json:"agentId,omitempty" validate:"max=128"`
	Content     string         `json:"content" validate:"required"`
	Description string         `json:"description,omitempty" validate:"max=2000"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// createPromptWire accepts the legacy field names.
type createPromptWire struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	AgentID     string         `json:"agentId"`
	AgentIDOld  string         `json:"agent_id"`
	Content     string         `json:"content"`
	Prompt      string         `json:"prompt"`
	Text        string         `json:"text"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata"`
}

func (w createPromptWire) normalize() CreatePromptRequest {
	return CreatePromptRequest{
		ID:          strings.TrimSpace(w.ID),
		Title:       firstNonEmpty(w.Title, w.Name),
		Type:        strings.TrimSpace(w.Type),
		AgentID:     firstNonEmpty(w.AgentID, w.AgentIDOld),
		Content:     firstVerbatim(w.Content, w.Prompt, w.Text),
		Description: strings.TrimSpace(w.Description),
		Metadata:    w.Metadata,
	}
}

// DecodeCreatePrompt decodes and validates a create body.
func DecodeCreatePrompt(r io.Reader) (CreatePromptRequest, error) {
	return decodeAliased[CreatePromptRequest, createPromptWire](r)
}

// UpdatePromptRequest represents a request to update a prompt. Nil fields
// are left unchanged.
type UpdatePromptRequest struct {
	Title       *string        `json:"title,omitempty" validate:"omitnil,max=200"`
	Type        *string        `json:"type,omitempty" validate:"omitnil,max=64"`
	AgentID     *string        `json:"agentId,omitempty" validate:"omitnil,max=128"`
	Content     *string        `json:"content,omitempty"`
	Description *string        `json:"description,omitempty" validate:"omitnil,max=2000"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Version     *int           `json:"version,omitempty" validate:"omitnil,min=1"` // version last read; advisory
}

// updatePromptWire accepts the legacy field names.
type updatePromptWire struct {
	Title       *string        `json:"title"`
	Name        *string        `json:"name"`
	Type        *string        `json:"type"`
	AgentID     *string        `json:"agentId"`
	AgentIDOld  *string        `json:"agent_id"`
	Content     *string        `json:"content"`
	Prompt      *string        `json:"prompt"`
	Text        *string        `json:"text"`
	Description *string        `json:"description"`
	Metadata    map[string]any `json:"metadata"`
	Version     *int           `json:"version"`
}

func (w updatePromptWire) normalize() UpdatePromptRequest {
	return UpdatePromptRequest{
		Title:       trimPtr(firstSet(w.Title, w.Name)),
		Type:        trimPtr(w.Type),
		AgentID:     trimPtr(firstSet(w.AgentID, w.AgentIDOld)),
		Content:     firstSet(w.Content, w.Prompt, w.Text),
		Description: trimPtr(w.Description),
		Metadata:    w.Metadata,
		Version:     w.Version,
	}
}

// DecodeUpdatePrompt decodes and validates an update body.
func DecodeUpdatePrompt(r io.Reader) (UpdatePromptRequest, error) {
	return decodeAliased[UpdatePromptRequest, updatePromptWire](r)
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// ListResponse wraps list results as {"items": [...]}
type ListResponse[T any] struct {
	Items []T `json:"items"`
}

// OKResponse is returned by operations without a resource body
type OKResponse struct {
	OK      bool `json:"ok"`
	Version int  `json:"version,omitempty"`
}
