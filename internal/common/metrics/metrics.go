// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_submissions_created_total",
			Help: "Total number of announcement submissions created, by initial status",
		},
		[]string{"initial_status"},
	)

	TransitionsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_transitions_total",
			Help: "Total number of workflow transitions attempted, by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_notifications_total",
			Help: "Total number of notification attempts, by channel and status",
		},
		[]string{"channel", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "portal_request_duration_seconds",
			Help: "Duration of HTTP request handling in seconds",
		},
		[]string{"route", "method"},
	)
)
