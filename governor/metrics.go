package governor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts governed calls, retries, and rate-limit failures. Counters
// are incremented synchronously but never block the governed call path.
type Metrics struct {
	calls      *prometheus.CounterVec
	retries    *prometheus.CounterVec
	rateLimits *prometheus.CounterVec
}

// scopeKind folds per-session scope keys into a bounded label value so
// session IDs don't explode label cardinality.
func scopeKind(scopeKey string) string {
	if scopeKey == EmbeddingScope {
		return "embedding"
	}
	return "generation"
}

// NewMetrics creates and registers governor metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tribunal",
			Subsystem: "governor",
			Name:      "calls_total",
			Help:      "Total governed call attempts.",
		}, []string{"scope"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tribunal",
			Subsystem: "governor",
			Name:      "retries_total",
			Help:      "Retries of transient failures.",
		}, []string{"scope"}),
		rateLimits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tribunal",
			Subsystem: "governor",
			Name:      "rate_limit_failures_total",
			Help:      "Failures caused by upstream rate limiting (HTTP 429).",
		}, []string{"scope"}),
	}

	if reg != nil {
		reg.MustRegister(m.calls, m.retries, m.rateLimits)
	}

	return m
}

// NopMetrics creates unregistered metrics. Useful for tests and callers that
// don't run a metrics endpoint.
func NopMetrics() *Metrics {
	return NewMetrics(nil)
}

// RecordCall increments the call counter for a scope.
func (m *Metrics) RecordCall(scopeKey string) {
	m.calls.WithLabelValues(scopeKind(scopeKey)).Inc()
}

// RecordRetry increments the retry counter for a scope.
func (m *Metrics) RecordRetry(scopeKey string) {
	m.retries.WithLabelValues(scopeKind(scopeKey)).Inc()
}

// RecordRateLimit increments the rate-limit failure counter for a scope.
func (m *Metrics) RecordRateLimit(scopeKey string) {
	m.rateLimits.WithLabelValues(scopeKind(scopeKey)).Inc()
}
