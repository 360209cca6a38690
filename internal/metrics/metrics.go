// Package metrics provides Prometheus metrics for the material service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "material_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "material_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Lifecycle metrics
	LifecycleOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "material_lifecycle_operations_total",
			Help: "Total number of document lifecycle operations",
		},
		[]string{"operation", "outcome"},
	)

	IDConflictRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "material_id_conflict_retries_total",
			Help: "Number of writes retried after a uniqueness or pointer conflict",
		},
		[]string{"operation"},
	)

	// Card cache metrics
	CardCacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "material_card_cache_lookups_total",
			Help: "Material card cache lookups",
		},
		[]string{"result"},
	)
)

// RecordLifecycle records the outcome of a lifecycle operation
func RecordLifecycle(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	LifecycleOperationsTotal.WithLabelValues(operation, outcome).Inc()
}
