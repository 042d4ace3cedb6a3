// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pulse-training/pulse-gw/pkg/core/apierr"
	"github.com/pulse-training/pulse-gw/pkg/ratelimit"
)

// Config represents the main configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
	Admin     AdminConfig     `yaml:"admin"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Audit     AuditConfig     `yaml:"audit"`
	Proxy     ProxyConfig     `yaml:"proxy"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host    string        `yaml:"host"`
	Port    int           `yaml:"port"`
	Timeout time.Duration `yaml:"timeout"`

	// TrustProxyHeaders takes the client address from X-Forwarded-For.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers"`
}

// LoggingConfig selects the log level and format
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// StorageConfig selects the blob store backing prompts, agents and jobs
type StorageConfig struct {
	Type     string `yaml:"type"`     // memory, filesystem, s3, postgres, sqlite
	BaseDir  string `yaml:"base_dir"` // filesystem
	DSN      string `yaml:"dsn"`      // postgres DSN or sqlite path
	Table    string `yaml:"table"`    // postgres, sqlite
	Bucket   string `yaml:"bucket"`   // s3
	Region   string `yaml:"region"`   // s3
	Prefix   string `yaml:"prefix"`   // s3
	Endpoint string `yaml:"endpoint"` // s3-compatible endpoint, e.g. MinIO
}

// Params returns the provider parameters for the selected backend.
func (s StorageConfig) Params() map[string]string {
	switch s.Type {
	case "filesystem":
		return map[string]string{"base_dir": s.BaseDir}
	case "s3":
		return map[string]string{"bucket": s.Bucket, "region": s.Region, "prefix": s.Prefix, "endpoint": s.Endpoint}
	case "postgres", "sqlite":
		return map[string]string{"dsn": s.DSN, "table": s.Table}
	default:
		return map[string]string{}
	}
}

// AuthConfig contains caller identity settings
type AuthConfig struct {
	JWTSecret    string   `yaml:"jwt_secret"`
	Issuer       string   `yaml:"issuer"`
	SharedSecret string   `yaml:"shared_secret"` // X-Function-Key
	AdminRoles   []string `yaml:"admin_roles"`
	DevMode      bool     `yaml:"dev_mode"`
}

// AdminConfig contains the admin write switches
type AdminConfig struct {
	EditEnabled bool   `yaml:"edit_enabled"`
	AllowSeed   bool   `yaml:"allow_seed"`
	SeedFile    string `yaml:"seed_file"`
}

// RateLimitConfig selects the counter backend and per-category rules
type RateLimitConfig struct {
	Store         string                `yaml:"store"` // memory or redis
	RedisAddr     string                `yaml:"redis_addr"`
	RedisPassword string                `yaml:"redis_password"`
	RedisDB       int                   `yaml:"redis_db"`
	Rules         map[string]RuleConfig `yaml:"rules"` // keyed by category
}

// RuleConfig is one category quota
type RuleConfig struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

// StoreParams returns the provider parameters for the counter backend.
func (r RateLimitConfig) StoreParams() map[string]string {
	if r.Store != "redis" {
		return map[string]string{}
	}
	return map[string]string{
		"addr":     r.RedisAddr,
		"password": r.RedisPassword,
		"db":       strconv.Itoa(r.RedisDB),
	}
}

// LimiterRules converts the configured rules for ratelimit.New.
func (r RateLimitConfig) LimiterRules() map[ratelimit.Category]ratelimit.Rule {
	out := make(map[ratelimit.Category]ratelimit.Rule, len(r.Rules))
	for cat, rule := range r.Rules {
		out[ratelimit.Category(cat)] = ratelimit.Rule{Limit: rule.Limit, Window: rule.Window}
	}
	return out
}

// AuditConfig selects the audit sink
type AuditConfig struct {
	Sink string `yaml:"sink"` // log, postgres, sqlite, memory
	DSN  string `yaml:"dsn"`
}

// Params returns the provider parameters for the audit sink.
func (a AuditConfig) Params() map[string]string {
	return map[string]string{"dsn": a.DSN}
}

// ProxyConfig contains the orchestrator relay settings
type ProxyConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Timeout        time.Duration `yaml:"timeout"`
	AllowAnonymous bool          `yaml:"allow_anonymous"`
}

// Enabled reports whether proxy routes are served.
func (p ProxyConfig) Enabled() bool { return p.BaseURL != "" }

// Load loads configuration from a YAML file, then applies environment
// overrides and defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := applyEnv(cfg, os.Getenv); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// FromEnv returns the defaults with environment overrides applied.
func FromEnv() (*Config, error) {
	cfg := Default()
	if err := applyEnv(cfg, os.Getenv); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			Timeout: 60 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Storage: StorageConfig{Type: "memory"},
		Auth:    AuthConfig{AdminRoles: []string{"admin"}},
		RateLimit: RateLimitConfig{
			Store: "memory",
			Rules: map[string]RuleConfig{
				string(ratelimit.CategorySession): {Limit: 10, Window: time.Minute},
				string(ratelimit.CategoryChat):    {Limit: 60, Window: time.Minute},
				string(ratelimit.CategoryDefault): {Limit: 120, Window: time.Minute},
			},
		},
		Audit: AuditConfig{Sink: "log"},
		Proxy: ProxyConfig{Timeout: 30 * time.Second},
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "memory"
	}
	if cfg.RateLimit.Store == "" {
		cfg.RateLimit.Store = "memory"
	}
	if cfg.Audit.Sink == "" {
		cfg.Audit.Sink = "log"
	}
	if len(cfg.Auth.AdminRoles) == 0 {
		cfg.Auth.AdminRoles = []string{"admin"}
	}
	if cfg.Proxy.Timeout <= 0 {
		cfg.Proxy.Timeout = 30 * time.Second
	}
}

// applyEnv overrides file settings with environment variables.
func applyEnv(cfg *Config, getenv func(string) string) error {
	var errs []string
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) {
		v := strings.TrimSpace(getenv(name))
		if v == "" {
			return
		}
		b, err := strconv.ParseBool(strings.ToLower(v))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s=%q is not a boolean", name, v))
			return
		}
		*dst = b
	}

	str("LOG_LEVEL", &cfg.Logging.Level)
	str("LOG_FORMAT", &cfg.Logging.Format)
	boolean("TRUST_PROXY_HEADERS", &cfg.Server.TrustProxyHeaders)

	boolean("ADMIN_EDIT_ENABLED", &cfg.Admin.EditEnabled)
	boolean("ALLOW_TEST_SEED", &cfg.Admin.AllowSeed)
	str("SEED_FILE", &cfg.Admin.SeedFile)

	str("JWT_SECRET", &cfg.Auth.JWTSecret)
	str("FUNCTION_APP_SHARED_SECRET", &cfg.Auth.SharedSecret)
	boolean("AUTH_DEV_MODE", &cfg.Auth.DevMode)

	str("ORCHESTRATOR_BASE_URL", &cfg.Proxy.BaseURL)

	str("STORAGE_TYPE", &cfg.Storage.Type)
	for _, name := range []string{"BLOB_CONN_STRING", "STORAGE_CONNECTION_STRING"} {
		str(name, &cfg.Storage.DSN)
	}
	if v := strings.TrimSpace(getenv("PROMPTS_CONTAINER")); v != "" {
		if cfg.Storage.Type == "s3" {
			cfg.Storage.Bucket = v
		} else {
			cfg.Storage.Table = v
		}
	}

	if v := strings.TrimSpace(getenv("REDIS_ADDR")); v != "" {
		cfg.RateLimit.Store = "redis"
		cfg.RateLimit.RedisAddr = v
	}
	str("REDIS_PASSWORD", &cfg.RateLimit.RedisPassword)
	for _, cat := range ratelimit.Categories {
		prefix := "RATE_LIMIT_" + strings.ToUpper(string(cat))
		rule := cfg.RateLimit.Rules[string(cat)]
		changed := false
		if v := strings.TrimSpace(getenv(prefix + "_LIMIT")); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s_LIMIT=%q is not an integer", prefix, v))
			} else {
				rule.Limit, changed = n, true
			}
		}
		if v := strings.TrimSpace(getenv(prefix + "_WINDOW")); v != "" {
			d, err := parseWindow(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s_WINDOW=%q: %v", prefix, v, err))
			} else {
				rule.Window, changed = d, true
			}
		}
		if changed {
			if cfg.RateLimit.Rules == nil {
				cfg.RateLimit.Rules = make(map[string]RuleConfig)
			}
			cfg.RateLimit.Rules[string(cat)] = rule
		}
	}

	str("AUDIT_SINK", &cfg.Audit.Sink)
	str("AUDIT_DSN", &cfg.Audit.DSN)

	if len(errs) > 0 {
		return apierr.Configuration("%s", strings.Join(errs, "; "))
	}
	return nil
}

// parseWindow accepts a Go duration ("90s") or a bare number of seconds.
func parseWindow(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// Validate reports missing or inconsistent settings as configuration errors.
func (c *Config) Validate() error {
	var problems []string
	switch c.Storage.Type {
	case "memory":
	case "filesystem":
		if c.Storage.BaseDir == "" {
			problems = append(problems, "storage.base_dir is required for filesystem storage")
		}
	case "s3":
		if c.Storage.Bucket == "" {
			problems = append(problems, "storage.bucket is required for s3 storage")
		}
	case "postgres", "sqlite":
		if c.Storage.DSN == "" {
			problems = append(problems, fmt.Sprintf("storage.dsn is required for %s storage", c.Storage.Type))
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown storage.type %q", c.Storage.Type))
	}

	switch c.RateLimit.Store {
	case "memory":
	case "redis":
		if c.RateLimit.RedisAddr == "" {
			problems = append(problems, "rate_limit.redis_addr is required for the redis store")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown rate_limit.store %q", c.RateLimit.Store))
	}
	for cat, rule := range c.RateLimit.Rules {
		if rule.Limit > 0 && rule.Window < time.Millisecond {
			problems = append(problems, fmt.Sprintf("rate_limit.rules.%s.window must be at least 1ms", cat))
		}
	}

	switch c.Audit.Sink {
	case "log", "memory":
	case "postgres", "sqlite":
		if c.Audit.DSN == "" {
			problems = append(problems, fmt.Sprintf("audit.dsn is required for the %s sink", c.Audit.Sink))
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown audit.sink %q", c.Audit.Sink))
	}

	if c.Proxy.Enabled() && !strings.HasPrefix(c.Proxy.BaseURL, "http://") && !strings.HasPrefix(c.Proxy.BaseURL, "https://") {
		problems = append(problems, "proxy.base_url must be an http(s) URL")
	}
	if c.Auth.Issuer != "" && c.Auth.JWTSecret == "" {
		problems = append(problems, "auth.jwt_secret is required when auth.issuer is set")
	}

	if len(problems) > 0 {
		return apierr.Configuration("%s", strings.Join(problems, "; "))
	}
	return nil
}
