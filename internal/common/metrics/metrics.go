// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesInterpreted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_messages_interpreted_total",
			Help: "Total number of messages interpreted, by resolved intent",
		},
		[]string{"intent", "query_type"},
	)

	InterpretFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_interpret_failures_total",
			Help: "Total number of failed interpretations, by error code",
		},
		[]string{"error_code"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "assistant_stage_duration_seconds",
			Help: "Duration of each pipeline stage in seconds",
		},
		[]string{"stage"},
	)

	CollaboratorCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_collaborator_calls_total",
			Help: "Total collaborator calls, by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	ActiveUserLocks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "assistant_active_user_locks",
			Help: "Number of user turns currently holding a per-user lock",
		},
	)
)
