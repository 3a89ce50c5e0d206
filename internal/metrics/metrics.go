// Package metrics provides Prometheus metrics for PulseWatch.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "pulsewatch"
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight tracks concurrent HTTP requests.
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)
)

// Scoring metrics
var (
	// ScoresComputedTotal counts composite score computations by index.
	ScoresComputedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "scores_computed_total",
			Help:      "Total composite score computations",
		},
		[]string{"index"},
	)

	// ScoreErrorsTotal counts failed score computations by index.
	ScoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "score_errors_total",
			Help:      "Total failed score computations",
		},
		[]string{"index"},
	)

	// AlertsActive tracks the current number of active alerts.
	AlertsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "alerts_active",
			Help:      "Currently active alerts",
		},
	)
)

// Escalation metrics
var (
	// EscalationsCreatedTotal counts escalations created by trigger rule.
	EscalationsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "escalation",
			Name:      "created_total",
			Help:      "Total escalations created",
		},
		[]string{"rule", "level", "urgency"},
	)

	// EscalationsDedupedTotal counts trigger firings suppressed because an
	// unresolved escalation already existed.
	EscalationsDedupedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "escalation",
			Name:      "deduped_total",
			Help:      "Trigger firings suppressed by idempotency",
		},
	)

	// EscalationTransitionsTotal counts lifecycle transitions by target status.
	EscalationTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "escalation",
			Name:      "transitions_total",
			Help:      "Total escalation state transitions",
		},
		[]string{"to"},
	)

	// EscalationSubjectErrorsTotal counts per-subject trigger evaluation failures.
	EscalationSubjectErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "escalation",
			Name:      "subject_errors_total",
			Help:      "Per-subject trigger evaluation failures",
		},
	)
)

// Notification metrics
var (
	// NotificationsSentTotal counts dispatched notifications by channel.
	NotificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifier",
			Name:      "sent_total",
			Help:      "Total notifications sent",
		},
		[]string{"channel"},
	)

	// NotificationErrorsTotal counts notification delivery failures by channel.
	NotificationErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifier",
			Name:      "errors_total",
			Help:      "Total notification delivery failures",
		},
		[]string{"channel"},
	)

	// NotificationsRateLimitedTotal counts notifications dropped by rate limiting.
	NotificationsRateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifier",
			Name:      "rate_limited_total",
			Help:      "Notifications dropped due to rate limiting",
		},
	)
)
