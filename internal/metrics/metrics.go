// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics provides Prometheus metrics for extraction sessions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Operation metrics
	OperationRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cadfacts_operation_runs_total",
			Help: "Total number of extraction operation attempts",
		},
		[]string{"operation", "status"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cadfacts_operation_duration_seconds",
			Help:    "Time taken by one extraction operation attempt",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	OperationsDeferred = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cadfacts_operations_deferred_total",
			Help: "Total number of operations deferred to the second pass",
		},
		[]string{"operation"},
	)

	FactsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cadfacts_facts_emitted_total",
			Help: "Total number of facts committed to the fact sink",
		},
		[]string{"operation"},
	)

	// Session metrics
	SessionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cadfacts_session_duration_seconds",
			Help:    "Duration of extraction sessions",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"mode"},
	)

	// Synchronization metrics
	SyncComponentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cadfacts_sync_components_total",
			Help: "Source components processed by identity synchronization",
		},
		[]string{"result"},
	)

	// Publish metrics
	PublishedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cadfacts_published_bytes_total",
			Help: "Total bytes uploaded to object storage",
		},
	)
)

// RecordAttempt records one operation attempt.
func RecordAttempt(operation, status string, duration time.Duration) {
	OperationRunsTotal.WithLabelValues(operation, status).Inc()
	OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordDeferral records an operation deferred to the second pass.
func RecordDeferral(operation string) {
	OperationsDeferred.WithLabelValues(operation).Inc()
}

// RecordFacts records facts committed by an operation.
func RecordFacts(operation string, n int) {
	FactsEmitted.WithLabelValues(operation).Add(float64(n))
}

// RecordSession records a finished extraction session.
func RecordSession(mode string, duration time.Duration) {
	SessionDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordSync records synchronization results.
func RecordSync(matched, mismatched int) {
	SyncComponentsTotal.WithLabelValues("matched").Add(float64(matched))
	SyncComponentsTotal.WithLabelValues("mismatched").Add(float64(mismatched))
}

// WriteTextfile writes every registered metric to path in the text
// exposition format, for collection by a node exporter.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
