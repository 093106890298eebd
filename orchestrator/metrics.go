package orchestrator

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts session lifecycle outcomes.
type Metrics struct {
	started   prometheus.Counter
	completed prometheus.Counter
	failed    prometheus.Counter
}

// NewMetrics creates session counters registered on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tribunal_sessions_started_total",
			Help: "Review sessions started.",
		}),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tribunal_sessions_completed_total",
			Help: "Review sessions that reached a verdict.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tribunal_sessions_failed_total",
			Help: "Review sessions that ended in failure.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.started, m.completed, m.failed)
	}
	return m
}

// NopMetrics creates unregistered counters for tests.
func NopMetrics() *Metrics {
	return NewMetrics(nil)
}
