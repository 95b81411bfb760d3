package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ForwardMetrics records the outcome of forward attempts against the order
// store, labeled by operation (order submission or payment confirmation).
type ForwardMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewForwardMetrics registers forward metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewForwardMetrics(reg prometheus.Registerer) *ForwardMetrics {
	if reg == nil {
		return &ForwardMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forward_duration_seconds",
		Help:    "Duration of forward attempts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "forward_success",
		Help: "Forward attempts accepted by the order store.",
	}, []string{"operation"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "forward_failure",
		Help: "Forward attempts the order store rejected or that never reached it.",
	}, []string{"operation"})
	reg.MustRegister(duration, success, failure)
	return &ForwardMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the duration for the named operation.
func (f *ForwardMetrics) ObserveDuration(operation string, duration time.Duration) {
	if f == nil || f.duration == nil {
		return
	}
	f.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named operation.
func (f *ForwardMetrics) IncSuccess(operation string) {
	if f == nil || f.success == nil {
		return
	}
	f.success.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncFailure increments the failure counter for the named operation.
func (f *ForwardMetrics) IncFailure(operation string) {
	if f == nil || f.failure == nil {
		return
	}
	f.failure.WithLabelValues(normalizeLabel(operation)).Inc()
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	value = strings.ReplaceAll(value, " ", "_")
	value = strings.ReplaceAll(value, "-", "_")
	if value == "" {
		return "unknown"
	}
	return value
}
