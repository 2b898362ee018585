// Package metrics declares the Prometheus collectors of the listing services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "listing"

var (
	// ProjectionOps counts projection writes by op (upsert, delete, failure)
	// and by what triggered them (notification, sweep, purchase).
	ProjectionOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "projection_ops_total",
		Help:      "Public listing projection writes.",
	}, []string{"op", "source"})

	SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sync_duration_seconds",
		Help:      "Time to rebuild one projection from MASTER.",
		Buckets:   prometheus.DefBuckets,
	})

	NotificationsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_skipped_total",
		Help:      "Change notifications not processed, by reason.",
	}, []string{"reason"})

	PromotionApplications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "promotion_applications_total",
		Help:      "Promotion purchases by outcome.",
	}, []string{"outcome"})

	ReceiptFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "receipt_failures_total",
		Help:      "Order receipts that could not be recorded.",
	})

	SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweep_runs_total",
		Help:      "Reconciliation sweeps by result.",
	}, []string{"result"})
)

// Projection op and source labels.
const (
	OpUpsert  = "upsert"
	OpDelete  = "delete"
	OpFailure = "failure"

	SourceNotification = "notification"
	SourceSweep        = "sweep"
	SourcePurchase     = "purchase"
)
