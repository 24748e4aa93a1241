// Package metrics holds the gateway's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// attemptsTotal counts provider attempts.
	// Labels: provider (general, native), outcome (success, retryable, terminal)
	attemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tutorgw",
		Subsystem: "provider",
		Name:      "attempts_total",
		Help:      "Provider completion attempts by provider and outcome",
	}, []string{"provider", "outcome"})

	attemptSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tutorgw",
		Subsystem: "provider",
		Name:      "attempt_seconds",
		Help:      "Latency of a single provider attempt",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"provider"})

	// admissionTotal counts admission decisions.
	// Labels: decision (allowed, denied)
	admissionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tutorgw",
		Subsystem: "admission",
		Name:      "decisions_total",
		Help:      "Admission decisions",
	}, []string{"decision"})

	// requestsTotal counts finished tutoring operations.
	// Labels: operation, result (ok or an error code)
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tutorgw",
		Subsystem: "tutor",
		Name:      "requests_total",
		Help:      "Tutoring operations by operation and result",
	}, []string{"operation", "result"})

	degradedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tutorgw",
		Subsystem: "normalize",
		Name:      "degraded_total",
		Help:      "Responses that fell back to a degraded default",
	}, []string{"operation"})
)

// RecordAttempt records one finished provider attempt.
func RecordAttempt(provider, outcome string, elapsed time.Duration) {
	attemptsTotal.WithLabelValues(provider, outcome).Inc()
	attemptSeconds.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// RecordAdmission records an admission decision.
func RecordAdmission(allowed bool) {
	if allowed {
		admissionTotal.WithLabelValues("allowed").Inc()
		return
	}
	admissionTotal.WithLabelValues("denied").Inc()
}

// RecordRequest records the result of a tutoring operation.
func RecordRequest(operation, result string) {
	requestsTotal.WithLabelValues(operation, result).Inc()
}

// RecordDegraded records a degraded normalization.
func RecordDegraded(operation string) {
	degradedTotal.WithLabelValues(operation).Inc()
}
