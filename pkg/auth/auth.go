// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package auth resolves the caller identity of an inbound request from a
// bearer JWT or the shared function key.
package auth

import (
	"context"
	"crypto/hmac"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pulse-training/pulse-gw/pkg/core/apierr"
)

const (
	// HeaderFunctionKey carries the shared secret used by trusted callers.
	HeaderFunctionKey = "X-Function-Key"
	// HeaderUserID names the end user on whose behalf a trusted caller acts.
	HeaderUserID = "X-PULSE-User-Id"

	// DevOperator is the identity used when no credentials are configured.
	DevOperator = "dev-operator"
)

// Role is the coarse privilege level of a caller.
type Role string

const (
	RoleAnonymous Role = "anonymous"
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
)

// Identity is the resolved caller.
type Identity struct {
	UserID string
	Email  string
	Role   Role
}

// Anonymous is the identity of a caller without credentials.
var Anonymous = Identity{Role: RoleAnonymous}

// Authenticated reports whether the caller presented valid credentials.
func (i Identity) Authenticated() bool { return i.Role == RoleUser || i.Role == RoleAdmin }

// IsAdmin reports whether the caller holds an elevated role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// Claims are the JWT claims read from bearer tokens.
type Claims struct {
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Config configures a Resolver.
type Config struct {
	JWTSecret    string
	Issuer       string   // optional; checked when set
	SharedSecret string   // X-Function-Key value
	AdminRoles   []string // JWT roles that map to RoleAdmin; defaults to ["admin"]
	// DevMode grants DevOperator admin rights to every request when neither
	// secret is configured.
	DevMode bool
}

// Resolver maps requests to identities.
type Resolver struct {
	cfg    Config
	logger *slog.Logger
}

// NewResolver returns a Resolver. A nil logger uses slog.Default().
func NewResolver(cfg Config, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.AdminRoles) == 0 {
		cfg.AdminRoles = []string{string(RoleAdmin)}
	}
	return &Resolver{cfg: cfg, logger: logger}
}

// Resolve returns the identity of r. Requests without credentials resolve to
// Anonymous with a nil error. Credentials that are present but invalid fail
// with apierr.ErrUnauthorized.
func (v *Resolver) Resolve(r *http.Request) (Identity, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			return Anonymous, fmt.Errorf("invalid Authorization header format: %w", apierr.ErrUnauthorized)
		}
		return v.verifyToken(strings.TrimSpace(token))
	}

	if key := r.Header.Get(HeaderFunctionKey); key != "" {
		if v.cfg.SharedSecret == "" || !hmac.Equal([]byte(key), []byte(v.cfg.SharedSecret)) {
			return Anonymous, fmt.Errorf("function key mismatch: %w", apierr.ErrUnauthorized)
		}
		uid := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if uid == "" {
			uid = "function-key"
		}
		return Identity{UserID: uid, Role: RoleAdmin}, nil
	}

	if v.cfg.DevMode && v.cfg.JWTSecret == "" && v.cfg.SharedSecret == "" {
		return Identity{UserID: DevOperator, Role: RoleAdmin}, nil
	}
	return Anonymous, nil
}

func (v *Resolver) verifyToken(tokenString string) (Identity, error) {
	if v.cfg.JWTSecret == "" {
		return Anonymous, fmt.Errorf("bearer tokens are not accepted: %w", apierr.ErrUnauthorized)
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(v.cfg.JWTSecret), nil
	}, opts...)
	if err != nil {
		reason := "invalid"
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			reason = "expired"
		case errors.Is(err, jwt.ErrTokenMalformed):
			reason = "malformed"
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			reason = "bad_signature"
		}
		v.logger.Warn("bearer token rejected", "reason", reason, "error", err)
		return Anonymous, fmt.Errorf("token %s: %w", reason, apierr.ErrUnauthorized)
	}
	if !token.Valid || claims.Subject == "" {
		return Anonymous, fmt.Errorf("token missing subject: %w", apierr.ErrUnauthorized)
	}

	role := RoleUser
	for _, r := range claims.Roles {
		if slices.Contains(v.cfg.AdminRoles, r) {
			role = RoleAdmin
			break
		}
	}
	return Identity{UserID: claims.Subject, Email: claims.Email, Role: role}, nil
}

// IssueToken signs an HS256 token for subject. It backs the admin CLI and
// tests.
func IssueToken(secret, subject, email string, roles []string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret cannot be empty")
	}
	now := time.Now()
	claims := &Claims{
		Email: email,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored in ctx, or Anonymous.
func FromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityKey{}).(Identity); ok {
		return id
	}
	return Anonymous
}
