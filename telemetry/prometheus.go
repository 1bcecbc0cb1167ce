// Package telemetry provides Prometheus metrics for the QA engine
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Engine operations
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qa_operations_total",
			Help: "Total number of QA engine operations",
		},
		[]string{"operation", "outcome"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qa_operation_duration_seconds",
			Help:    "Duration of QA engine operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Piece status coordination
	PieceTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qa_piece_status_transitions_total",
			Help: "Piece status changes written by the QA engine",
		},
		[]string{"status", "source"},
	)

	StatusSyncFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qa_piece_status_sync_failures_total",
			Help: "Piece status writes that failed after the inspection or defect was stored",
		},
		[]string{"source"},
	)

	// Notifications
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qa_notifications_total",
			Help: "Notifications emitted by target module and outcome",
		},
		[]string{"target", "outcome"},
	)

	OutboxPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qa_outbox_published_total",
			Help: "Outbox notification publish attempts by outcome",
		},
		[]string{"outcome"},
	)

	// Best-effort writes that were swallowed
	DependencyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qa_dependency_failures_total",
			Help: "Non-fatal dependency failures (notification or job metrics writes)",
		},
		[]string{"dependency"},
	)

	NumberingConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qa_numbering_conflicts_total",
			Help: "Document number collisions retried by the generator",
		},
		[]string{"prefix"},
	)
)

// ObserveOperation records one engine operation.
func ObserveOperation(operation string, started time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	OperationsTotal.WithLabelValues(operation, outcome).Inc()
	OperationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}
