// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package ratelimit implements sliding-window request quotas keyed by client
// and route category.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/pulse-training/pulse-gw/pkg/provider"
)

// Category groups routes that share a quota.
type Category string

const (
	CategorySession Category = "session"
	CategoryChat    Category = "chat"
	CategoryDefault Category = "default"
)

// Categories lists every known category.
var Categories = []Category{CategorySession, CategoryChat, CategoryDefault}

// Rule is the quota for one category: at most Limit requests per Window.
// A Limit of zero or less disables limiting.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Usage is a counter's view of one key after a Take.
type Usage struct {
	Count    int       // hits inside the window, including this one if admitted
	Admitted bool      // whether this hit was recorded
	ResetAt  time.Time // when the oldest counted hit leaves the window
}

// Counter keeps a sliding log of hits per key. Take admits a hit at now
// unless limit hits already fall within (now-window, now]; rejected hits are
// not recorded. Implementations must be safe for concurrent use.
type Counter interface {
	Take(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (Usage, error)
	Close() error
}

// Counters is the registry of counter backends ("memory", "redis").
var Counters = provider.NewRegistry[Counter]("rate_limit_store")

// Limiter applies per-category rules on top of a Counter. Any span of one
// window admits at most Limit requests per client and category.
type Limiter struct {
	counter Counter
	rules   map[Category]Rule
	now     func() time.Time
}

// New returns a Limiter. Categories without a rule use the default rule.
func New(counter Counter, rules map[Category]Rule) *Limiter {
	r := make(map[Category]Rule, len(rules))
	for k, v := range rules {
		r[k] = v
	}
	return &Limiter{counter: counter, rules: r, now: time.Now}
}

// Rule returns the rule applied to cat.
func (l *Limiter) Rule(cat Category) Rule {
	if r, ok := l.rules[cat]; ok {
		return r
	}
	return l.rules[CategoryDefault]
}

// Allow counts one request from clientID in cat. A counter failure is
// returned as an error and the request must be treated as rejected.
func (l *Limiter) Allow(ctx context.Context, clientID string, cat Category) (Decision, error) {
	rule := l.Rule(cat)
	if rule.Limit <= 0 || rule.Window < time.Millisecond {
		return Decision{Allowed: true, Limit: rule.Limit, Remaining: -1}, nil
	}
	if _, ok := l.rules[cat]; !ok {
		cat = CategoryDefault
	}

	now := l.now()
	u, err := l.counter.Take(ctx, string(cat)+":"+clientID, now, rule.Window, rule.Limit)
	if err != nil {
		return Decision{Limit: rule.Limit, ResetAt: now.Add(rule.Window)}, fmt.Errorf("rate limit counter: %w", err)
	}
	return Decision{
		Allowed:   u.Admitted,
		Limit:     rule.Limit,
		Remaining: max(rule.Limit-u.Count, 0),
		ResetAt:   u.ResetAt,
	}, nil
}

// Close releases the counter backend.
func (l *Limiter) Close() error {
	return l.counter.Close()
}
