// Package metrics provides Prometheus metrics for the QubicBall client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "qubicball"
)

// API client metrics
var (
	// APIRequestsTotal counts calls to the remote API by operation and
	// outcome. Outcome is the error kind ("ok" on success), so conflicts
	// and rate limiting stay visible separately from transport failures.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total remote API calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// APIRequestDuration tracks remote API call latency.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Remote API call latency in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	// ConflictsTotal counts optimistic-concurrency conflicts by entity.
	ConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "conflicts_total",
			Help:      "Writes rejected by the server version check",
		},
		[]string{"entity"},
	)
)

// Cache metrics
var (
	// CacheHitsTotal counts reads served from cache by key class.
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Cache hits by key class",
		},
		[]string{"key"},
	)

	// CacheMissesTotal counts reads that went to the remote API.
	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Cache misses by key class",
		},
		[]string{"key"},
	)

	// CacheInvalidationsTotal counts write-triggered invalidations.
	CacheInvalidationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "invalidations_total",
			Help:      "Write-triggered cache invalidations",
		},
	)
)

// Web frontend metrics
var (
	// WebRequestsTotal counts HTTP requests by method, path, and status.
	WebRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "web",
			Name:      "requests_total",
			Help:      "Total HTTP requests served by qubicweb",
		},
		[]string{"method", "path", "status"},
	)

	// WebRequestDuration tracks HTTP request latency.
	WebRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "web",
			Name:      "request_duration_seconds",
			Help:      "qubicweb request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)
)
