// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pulse-training/pulse-gw/pkg/core/apierr"
	"github.com/pulse-training/pulse-gw/pkg/observability/logging"
)

const testSecret = "test-jwt-secret"

func newResolver(cfg Config) *Resolver {
	return NewResolver(cfg, logging.Discard().Logger)
}

func TestResolve_BearerToken(t *testing.T) {
	r := newResolver(Config{JWTSecret: testSecret, AdminRoles: []string{"admin", "trainer-admin"}})

	tests := []struct {
		name  string
		roles []string
		want  Role
	}{
		{"plain user", []string{"trainee"}, RoleUser},
		{"admin", []string{"trainee", "trainer-admin"}, RoleAdmin},
		{"no roles", nil, RoleUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := IssueToken(testSecret, "u-42", "u42@example.com", tt.roles, time.Hour)
			if err != nil {
				t.Fatalf("IssueToken: %v", err)
			}
			req := httptest.NewRequest("GET", "/api/admin/prompts", nil)
			req.Header.Set("Authorization", "Bearer "+tok)

			id, err := r.Resolve(req)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if id.UserID != "u-42" || id.Email != "u42@example.com" || id.Role != tt.want {
				t.Errorf("identity = %+v, want role %s", id, tt.want)
			}
		})
	}
}

func TestResolve_RejectsBadTokens(t *testing.T) {
	r := newResolver(Config{JWTSecret: testSecret})

	expired, _ := IssueToken(testSecret, "u", "", nil, -time.Minute)
	wrongKey, _ := IssueToken("other-secret", "u", "", nil, time.Hour)
	noneAlg, _ := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	for name, header := range map[string]string{
		"expired":     "Bearer " + expired,
		"wrong key":   "Bearer " + wrongKey,
		"alg none":    "Bearer " + noneAlg,
		"garbage":     "Bearer not-a-token",
		"bad scheme":  "Basic dXNlcjpwYXNz",
		"empty token": "Bearer ",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.Header.Set("Authorization", header)
			id, err := r.Resolve(req)
			if !errors.Is(err, apierr.ErrUnauthorized) {
				t.Errorf("expected ErrUnauthorized, got %v", err)
			}
			if id.Authenticated() {
				t.Errorf("rejected token produced authenticated identity: %+v", id)
			}
		})
	}
}

func TestResolve_FunctionKey(t *testing.T) {
	r := newResolver(Config{SharedSecret: "s3cret"})

	req := httptest.NewRequest("POST", "/api/session/start", nil)
	req.Header.Set(HeaderFunctionKey, "s3cret")
	req.Header.Set(HeaderUserID, "trainee-7")
	id, err := r.Resolve(req)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id.UserID != "trainee-7" || !id.IsAdmin() {
		t.Errorf("identity = %+v", id)
	}

	req.Header.Set(HeaderFunctionKey, "guess")
	if _, err := r.Resolve(req); !errors.Is(err, apierr.ErrUnauthorized) {
		t.Errorf("wrong key: expected ErrUnauthorized, got %v", err)
	}
}

func TestResolve_AnonymousAndDevMode(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)

	id, err := newResolver(Config{JWTSecret: testSecret, DevMode: true}).Resolve(req)
	if err != nil || id.Authenticated() {
		t.Errorf("configured secret must disable dev mode: %+v %v", id, err)
	}

	id, err = newResolver(Config{DevMode: true}).Resolve(req)
	if err != nil || id.UserID != DevOperator || !id.IsAdmin() {
		t.Errorf("dev mode identity = %+v %v", id, err)
	}

	id, err = newResolver(Config{}).Resolve(req)
	if err != nil || id != Anonymous {
		t.Errorf("expected anonymous, got %+v %v", id, err)
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	if FromContext(ctx) != Anonymous {
		t.Error("empty context should yield Anonymous")
	}
	want := Identity{UserID: "u", Role: RoleUser}
	if got := FromContext(WithIdentity(ctx, want)); got != want {
		t.Errorf("FromContext = %+v, want %+v", got, want)
	}
}
