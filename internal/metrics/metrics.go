package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ErrorsRegistered tracks handling failures recorded per finality state
	ErrorsRegistered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_errors_registered_total",
			Help: "Total number of message handling failures registered",
		},
		[]string{"final"},
	)

	// TrackedRecords tracks the current number of failure records in memory
	TrackedRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatch_tracked_error_records",
			Help: "Number of failure records currently held by the error tracker",
		},
	)

	// RecordsSwept tracks stale failure records evicted by the sweeper
	RecordsSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_error_records_swept_total",
			Help: "Total number of stale failure records evicted",
		},
	)

	// SweepDuration tracks how long a full scan-and-evict pass takes
	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dispatch_sweep_duration_seconds",
			Help:    "Duration of error tracker sweep passes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// MessagesDispatched tracks delivery outcomes per queue
	MessagesDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_messages_total",
			Help: "Total number of message deliveries by outcome",
		},
		[]string{"queue", "outcome"},
	)

	// MessagesDeadLettered tracks messages moved to the error queue
	MessagesDeadLettered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_messages_dead_lettered_total",
			Help: "Total number of messages moved to the error queue",
		},
	)
)
