// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"context"
	"sync"
	"time"
)

func init() {
	Counters.Register("memory", func(_ context.Context, _ map[string]string) (Counter, error) {
		return NewMemoryCounter(), nil
	})
}

// compile-time check
var _ Counter = (*MemoryCounter)(nil)

type hitLog struct {
	hits   []time.Time // ascending
	window time.Duration
}

// prune drops hits at or before now-window.
func (h *hitLog) prune(now time.Time) {
	cutoff := now.Add(-h.window)
	i := 0
	for i < len(h.hits) && !h.hits[i].After(cutoff) {
		i++
	}
	h.hits = h.hits[i:]
}

// MemoryCounter keeps hit logs in process memory. Counts are per instance.
type MemoryCounter struct {
	mu        sync.Mutex
	logs      map[string]*hitLog
	lastSweep time.Time
}

// NewMemoryCounter returns an empty MemoryCounter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{logs: make(map[string]*hitLog)}
}

// Take records a hit for key and drops idle logs at most once per second.
func (m *MemoryCounter) Take(_ context.Context, key string, now time.Time, window time.Duration, limit int) (Usage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.lastSweep) >= time.Second {
		for k, l := range m.logs {
			if l.prune(now); len(l.hits) == 0 {
				delete(m.logs, k)
			}
		}
		m.lastSweep = now
	}

	l, ok := m.logs[key]
	if !ok {
		l = &hitLog{}
		m.logs[key] = l
	}
	l.window = window
	l.prune(now)

	admitted := len(l.hits) < limit
	if admitted {
		l.hits = append(l.hits, now)
	}
	resetAt := now.Add(window)
	if len(l.hits) > 0 {
		resetAt = l.hits[0].Add(window)
	}
	return Usage{Count: len(l.hits), Admitted: admitted, ResetAt: resetAt}, nil
}

// Len returns the number of keys with a live log.
func (m *MemoryCounter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.logs)
}

// Close is a no-op.
func (m *MemoryCounter) Close() error { return nil }
