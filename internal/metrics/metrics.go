package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncRuns tracks orchestrator runs by outcome
	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_service_sync_runs_total",
			Help: "Total number of sync runs by outcome",
		},
		[]string{"outcome"}, // completed, debounced, failed
	)

	// SyncDuration tracks how long a full sync run takes
	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reminder_service_sync_duration_seconds",
			Help:    "Sync run duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// NotificationsScheduled tracks notifications handed to the scheduler
	NotificationsScheduled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_service_scheduled_total",
			Help: "Total number of notifications scheduled",
		},
		[]string{"type"},
	)

	// ScheduleFailures tracks individual schedule calls that failed
	ScheduleFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_service_schedule_failures_total",
			Help: "Total number of failed schedule calls",
		},
		[]string{"type"},
	)

	// CancelFailures tracks individual cancel calls that failed
	CancelFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminder_service_cancel_failures_total",
			Help: "Total number of failed cancel calls",
		},
	)

	// ReconcilerPruned tracks ledger entries dropped because the scheduler
	// no longer knows their notification id
	ReconcilerPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminder_service_reconciler_pruned_total",
			Help: "Total number of ledger entries pruned by reconciliation",
		},
	)

	// PushDeliveries tracks web push delivery attempts
	PushDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_service_push_deliveries_total",
			Help: "Total number of web push delivery attempts",
		},
		[]string{"status"}, // sent, expired, failed
	)

	// RateLimitExceeded tracks API rate limit violations
	RateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_service_rate_limit_exceeded_total",
			Help: "Total number of rate limit exceeded events",
		},
		[]string{"owner_id"},
	)

	// EventsConsumed tracks sync-trigger events consumed from the broker
	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_service_events_consumed_total",
			Help: "Total number of broker events consumed",
		},
		[]string{"type"},
	)
)
