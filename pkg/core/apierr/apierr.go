// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package apierr defines the error taxonomy shared by the config store, the
// access gateway and the HTTP adapter.
//
// Producers wrap one of the sentinel errors with context using %w:
//
//	return fmt.Errorf("prompt %s: %w", id, apierr.ErrNotFound)
//
// and the HTTP boundary classifies the chain once with KindOf.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors, one per kind.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrRateLimited   = errors.New("rate limited")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrUpstream      = errors.New("upstream error")
	ErrInternal      = errors.New("internal error")
)

// Kind classifies an error for status mapping and audit.
type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindAlreadyExists Kind = "already_exists"
	KindUnauthorized  Kind = "unauthorized"
	KindForbidden     Kind = "forbidden"
	KindRateLimited   Kind = "rate_limited"
	KindValidation    Kind = "validation_error"
	KindConfiguration Kind = "configuration_error"
	KindUpstream      Kind = "upstream_error"
	KindInternal      Kind = "internal_error"
)

var kinds = []struct {
	sentinel error
	kind     Kind
}{
	{ErrNotFound, KindNotFound},
	{ErrAlreadyExists, KindAlreadyExists},
	{ErrUnauthorized, KindUnauthorized},
	{ErrForbidden, KindForbidden},
	{ErrRateLimited, KindRateLimited},
	{ErrValidation, KindValidation},
	{ErrConfiguration, KindConfiguration},
	{ErrUpstream, KindUpstream},
	{ErrInternal, KindInternal},
}

// KindOf returns the kind of the first sentinel found in err's chain.
// Unclassified errors are internal.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k.kind
		}
	}
	return KindInternal
}

// Status maps a kind to its HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindAlreadyExists:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindValidation:
		return http.StatusBadRequest
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Expected reports whether errors of this kind are normal client-facing
// outcomes whose message may be returned verbatim.
func (k Kind) Expected() bool {
	return k == KindNotFound || k == KindAlreadyExists || k == KindValidation
}

// PublicMessage returns the message that may be shown to the caller.
// Forbidden and rate-limited responses are uniform so they never reveal
// whether the write flag, the role or the quota caused the rejection.
func PublicMessage(err error) string {
	k := KindOf(err)
	switch {
	case k.Expected():
		return err.Error()
	case k == KindUnauthorized:
		return "Unauthorized"
	case k == KindForbidden:
		return "Forbidden"
	case k == KindRateLimited:
		return "Too many requests"
	case k == KindUpstream:
		return "Upstream service error"
	default:
		return "Internal server error"
	}
}

// Validation builds a validation error with a formatted message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Configuration builds a configuration error with a formatted message.
func Configuration(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// UpstreamError is returned when the orchestrator backend answers with a
// non-success status. Status and Body are propagated to the caller as-is.
type UpstreamError struct {
	Status      int
	Body        []byte
	ContentType string
	Err         error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("upstream status %d", e.Status)
}

// Unwrap exposes both the sentinel and the transport cause, if any.
func (e *UpstreamError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrUpstream, e.Err}
	}
	return []error{ErrUpstream}
}
