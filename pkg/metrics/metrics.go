package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Task queue metrics
	TasksProcessed *prometheus.CounterVec
	TasksFailed    *prometheus.CounterVec
	TaskDuration   *prometheus.HistogramVec

	// Subscription sweep metrics
	SweepRuns           prometheus.Counter
	SweepFailures       prometheus.Counter
	SubscriptionExpired prometheus.Counter

	// Distributed lock metrics
	LockAcquired prometheus.Counter
	LockFailed   prometheus.Counter

	// Point ledger metrics
	PointsAwarded prometheus.Counter
}

// New creates and registers all application metrics under the namespace.
func New(namespace string) *Metrics {
	return &Metrics{
		TasksProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_processed_total",
			Help:      "Total number of background tasks processed successfully",
		}, []string{"queue"}),
		TasksFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_failed_total",
			Help:      "Total number of background tasks that failed",
		}, []string{"queue"}),
		TaskDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Time spent processing background tasks",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"queue"}),
		SweepRuns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_sweep_runs_total",
			Help:      "Total number of subscription expiry sweep runs",
		}),
		SweepFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_sweep_failures_total",
			Help:      "Total number of failed subscription expiry sweep runs",
		}),
		SubscriptionExpired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriptions_expired_total",
			Help:      "Total number of paid subscriptions reverted to trial",
		}),
		LockAcquired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lock_acquired_total",
			Help:      "Total number of distributed lock acquisitions",
		}),
		LockFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lock_failed_total",
			Help:      "Total number of failed distributed lock acquisitions",
		}),
		PointsAwarded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_awarded_total",
			Help:      "Total number of view points awarded",
		}),
	}
}
