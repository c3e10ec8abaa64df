// Package metrics defines the Prometheus collectors for the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration observes HTTP request latency by method, path,
	// and response status.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "linkup",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// JoinOutcomes counts resolved join requests by outcome: "matched"
	// when an existing group had capacity, "created" when a new group
	// was made for the caller.
	JoinOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "linkup",
			Name:      "join_requests_total",
			Help:      "Join requests resolved, by outcome.",
		},
		[]string{"outcome"},
	)
)
