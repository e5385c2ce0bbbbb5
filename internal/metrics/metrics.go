// Package metrics holds the Prometheus collectors of the store emulator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dmview_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dmview_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route"},
	)

	// Store metrics
	DocumentWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dmview_document_writes_total",
			Help: "Total successful document writes",
		},
		[]string{"collection", "op"}, // push, put, patch, delete
	)

	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dmview_rate_limit_hits_total",
			Help: "Total writes rejected by the rate limit",
		},
	)
)
