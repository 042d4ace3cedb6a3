// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts gateway requests by route and outcome
	// ("ok" or an error kind).
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_gateway_requests_total",
			Help: "Total number of gateway requests by route and outcome.",
		},
		[]string{"route", "outcome"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pulse_gateway_request_duration_seconds",
			Help:    "Gateway request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_ratelimit_rejections_total",
			Help: "Total number of requests rejected by the rate limiter, by category.",
		},
		[]string{"category"},
	)

	AuditEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_audit_entries_total",
			Help: "Total number of audit entries recorded, by action.",
		},
		[]string{"action"},
	)

	ConfigStoreWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_configstore_writes_total",
			Help: "Total number of versioned writes by collection and operation.",
		},
		[]string{"collection", "op"},
	)
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
