// Package metrics holds the Prometheus collectors for the entity core.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	storeWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_store_writes_total",
			Help: "Whole-collection writes to the key-value store",
		},
		[]string{"collection"},
	)

	storeReadFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_store_read_failures_total",
			Help: "Collection reads that failed and degraded to an empty list",
		},
		[]string{"collection", "reason"},
	)

	sweeps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_reconcile_sweeps_total",
			Help: "Status reconciliation sweeps by outcome",
		},
		[]string{"outcome"},
	)

	statusChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_reconcile_status_changes_total",
			Help: "Event status transitions written by the reconciler",
		},
		[]string{"status"},
	)

	sweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "planner_reconcile_sweep_duration_seconds",
			Help:    "Time spent inside one reconciliation sweep",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
	)

	feedbackSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_feedback_submissions_total",
			Help: "Feedback submissions by result",
		},
		[]string{"result"},
	)
)

func StoreWrite(collection string) {
	storeWrites.WithLabelValues(collection).Inc()
}

func StoreReadFailure(collection, reason string) {
	storeReadFailures.WithLabelValues(collection, reason).Inc()
}

// Sweep records one reconciliation pass. outcome is "changed", "unchanged" or "error".
func Sweep(outcome string, elapsed time.Duration) {
	sweeps.WithLabelValues(outcome).Inc()
	sweepDuration.Observe(elapsed.Seconds())
}

func StatusChange(status string) {
	statusChanges.WithLabelValues(status).Inc()
}

func FeedbackSubmission(result string) {
	feedbackSubmissions.WithLabelValues(result).Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
