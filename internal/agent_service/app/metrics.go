package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	provisioningRunsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agent_service",
			Name:      "provisioning_runs_total",
			Help:      "Total provisioning runs by entry point and outcome.",
		},
		[]string{"entry", "outcome"}, // outcome: "persisted", "failed_<state>"
	)

	provisioningStepDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "agent_service",
			Name:      "provisioning_step_duration_seconds",
			Help:      "Duration of each provisioning step.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"step"},
	)

	provisioningRunDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "agent_service",
			Name:      "provisioning_run_duration_seconds",
			Help:      "Duration of whole provisioning runs.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"entry"},
	)

	paymentWebhookEventsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agent_service",
			Name:      "payment_webhook_events_total",
			Help:      "Payment callbacks received, by event type and outcome.",
		},
		[]string{"event_type", "outcome"},
	)
)
