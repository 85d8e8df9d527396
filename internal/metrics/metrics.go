package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "wellness"

// HTTP metrics
var (
	// HTTPRequestsTotal counts requests by route template, method and status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	// HTTPRequestDuration tracks request latency in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)

// Session lifecycle metrics
var (
	// SessionOperationsTotal counts lifecycle operations by operation and result kind
	SessionOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_operations_total",
			Help:      "Session lifecycle operations by operation and result",
		},
		[]string{"operation", "result"},
	)
)

// Auto-save metrics
var (
	// AutosaveAttemptsTotal counts scheduler attempts by trigger and outcome
	AutosaveAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "autosave_attempts_total",
			Help:      "Auto-save attempts by trigger (debounce/backup/manual) and outcome",
		},
		[]string{"trigger", "outcome"},
	)

	// AutosaveDuration tracks how long emitted saves take
	AutosaveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "autosave_duration_seconds",
			Help:      "Duration of auto-save requests that reached the store",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)
)
