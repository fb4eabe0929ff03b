// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProviderAttempts counts chat completion attempts by provider and
	// outcome ("success", "error", "empty").
	ProviderAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrimate_llm_provider_attempts_total",
			Help: "Chat completion attempts per provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	// ChainExhausted counts requests where every provider failed.
	ChainExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agrimate_llm_chain_exhausted_total",
			Help: "Chat requests where all providers failed",
		},
	)

	// MandiResponses counts mandi responses by source ("live", "cache", "fallback").
	MandiResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrimate_mandi_responses_total",
			Help: "Mandi price responses by data source",
		},
		[]string{"source"},
	)

	// UpstreamDuration observes external call latency by service.
	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agrimate_upstream_duration_seconds",
			Help:    "Latency of calls to external services",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	// HTTPRequests counts served API requests by route and status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrimate_http_requests_total",
			Help: "HTTP requests served by route and status code",
		},
		[]string{"route", "status"},
	)
)
