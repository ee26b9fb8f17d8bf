package voice

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricStateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voicecore",
		Subsystem: "orchestrator",
		Name:      "state_transitions_total",
		Help:      "Orchestrator state transitions by from/to state.",
	}, []string{"from", "to"})

	metricSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voicecore",
		Subsystem: "guard",
		Name:      "suppressed_results_total",
		Help:      "Final recognition results suppressed by the echo guard, by reason.",
	}, []string{"reason"})

	metricRestartsScheduled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "voicecore",
		Subsystem: "orchestrator",
		Name:      "restarts_scheduled_total",
		Help:      "Microphone restart timers armed.",
	})

	metricRestartsCoalesced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "voicecore",
		Subsystem: "orchestrator",
		Name:      "restarts_coalesced_total",
		Help:      "Restart requests dropped because a timer was already pending.",
	})

	metricCaptureRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "voicecore",
		Subsystem: "capture",
		Name:      "retries_total",
		Help:      "Capture restarts attempted after transient errors.",
	})

	metricWatchdogFires = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "voicecore",
		Subsystem: "orchestrator",
		Name:      "watchdog_fires_total",
		Help:      "Times the speaking watchdog force-cleared a stuck avatar speech window.",
	})

	metricTasksSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "voicecore",
		Subsystem: "avatar",
		Name:      "tasks_sent_total",
		Help:      "Accepted transcripts forwarded to the avatar channel.",
	})
)
