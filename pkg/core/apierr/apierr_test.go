// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		kind   Kind
		status int
	}{
		{"not found", fmt.Errorf("prompt x: %w", ErrNotFound), KindNotFound, http.StatusNotFound},
		{"exists", fmt.Errorf("prompt x: %w", ErrAlreadyExists), KindAlreadyExists, http.StatusConflict},
		{"unauthorized", fmt.Errorf("bad token: %w", ErrUnauthorized), KindUnauthorized, http.StatusUnauthorized},
		{"forbidden", ErrForbidden, KindForbidden, http.StatusForbidden},
		{"rate limited", ErrRateLimited, KindRateLimited, http.StatusTooManyRequests},
		{"validation", Validation("title is required"), KindValidation, http.StatusBadRequest},
		{"configuration", Configuration("missing bucket"), KindConfiguration, http.StatusInternalServerError},
		{"upstream", &UpstreamError{Status: 503}, KindUpstream, http.StatusBadGateway},
		{"plain", errors.New("boom"), KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.kind {
				t.Errorf("KindOf = %q, want %q", got, tt.kind)
			}
			if got := KindOf(tt.err).Status(); got != tt.status {
				t.Errorf("Status = %d, want %d", got, tt.status)
			}
		})
	}
}

func TestPublicMessage_DoesNotLeakCause(t *testing.T) {
	err := fmt.Errorf("writes disabled: %w", ErrForbidden)
	if got := PublicMessage(err); got != "Forbidden" {
		t.Errorf("PublicMessage = %q, want Forbidden", got)
	}

	err = fmt.Errorf("dial tcp 10.0.0.1:5432: %w", errors.New("refused"))
	if got := PublicMessage(err); got != "Internal server error" {
		t.Errorf("PublicMessage = %q, want generic message", got)
	}

	err = Validation("title is required")
	if got := PublicMessage(err); got != "validation error: title is required" {
		t.Errorf("PublicMessage = %q", got)
	}
}

func TestUpstreamError_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("forward: %w", &UpstreamError{Status: http.StatusBadGateway, Err: cause})

	if !errors.Is(err, ErrUpstream) {
		t.Error("expected errors.Is(err, ErrUpstream)")
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is(err, cause)")
	}
	var up *UpstreamError
	if !errors.As(err, &up) || up.Status != http.StatusBadGateway {
		t.Errorf("errors.As failed or wrong status: %+v", up)
	}
}
