// Package metrics provides Prometheus instrumentation for the risk engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "email_risk"

var (
	// EvaluationsTotal counts verdicts by status.
	EvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Total email evaluations by verdict status.",
		},
		[]string{"status"},
	)

	// RateLimitedTotal counts requests denied by the rate limiter.
	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Total evaluations rejected by the per-client rate limiter.",
	})

	// CacheLookupsTotal counts verdict cache lookups by result (hit, miss).
	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Total verdict cache lookups by result.",
		},
		[]string{"result"},
	)

	// CollectorResultsTotal counts external probe outcomes.
	CollectorResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collector_results_total",
			Help:      "Total external collector runs by collector and outcome.",
		},
		[]string{"collector", "outcome"},
	)

	// CollectorDuration observes external probe latency.
	CollectorDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collector_duration_seconds",
			Help:      "External collector latency in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
		},
		[]string{"collector"},
	)

	// AuditEventsTotal counts security events by delivery result.
	AuditEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_events_total",
			Help:      "Total security events by delivery result (written, failed, dropped).",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		EvaluationsTotal,
		RateLimitedTotal,
		CacheLookupsTotal,
		CollectorResultsTotal,
		CollectorDuration,
		AuditEventsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
