package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FulfillmentMetrics records outcomes of the order fulfillment engine.
type FulfillmentMetrics struct {
	duration      *prometheus.HistogramVec
	decisions     *prometheus.CounterVec
	cancellations *prometheus.CounterVec
	rejections    *prometheus.CounterVec
}

// NewFulfillmentMetrics registers the fulfillment metrics on the provided registerer.
func NewFulfillmentMetrics(reg prometheus.Registerer) *FulfillmentMetrics {
	if reg == nil {
		return &FulfillmentMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fulfillment_operation_duration_seconds",
		Help:    "Duration of fulfillment engine operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillment_decisions_total",
		Help: "Allocation decisions recorded, labeled by reply.",
	}, []string{"reply"})
	cancellations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillment_cancellations_total",
		Help: "Order cancellations processed.",
	}, []string{"outcome"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillment_rejections_total",
		Help: "Operations rejected before any write, labeled by error code.",
	}, []string{"operation", "code"})
	reg.MustRegister(duration, decisions, cancellations, rejections)
	return &FulfillmentMetrics{
		duration:      duration,
		decisions:     decisions,
		cancellations: cancellations,
		rejections:    rejections,
	}
}

// ObserveDuration records the duration for the named operation.
func (f *FulfillmentMetrics) ObserveDuration(operation string, duration time.Duration) {
	if f == nil || f.duration == nil {
		return
	}
	f.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncDecision increments the decision counter for the given reply.
func (f *FulfillmentMetrics) IncDecision(reply string) {
	if f == nil || f.decisions == nil {
		return
	}
	f.decisions.WithLabelValues(normalizeLabel(reply)).Inc()
}

// IncCancellation increments the cancellation counter for the given outcome.
func (f *FulfillmentMetrics) IncCancellation(outcome string) {
	if f == nil || f.cancellations == nil {
		return
	}
	f.cancellations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncRejection increments the rejection counter for the operation/code pair.
func (f *FulfillmentMetrics) IncRejection(operation, code string) {
	if f == nil || f.rejections == nil {
		return
	}
	f.rejections.WithLabelValues(normalizeLabel(operation), normalizeLabel(code)).Inc()
}

func normalizeLabel(value string) string {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" {
		return "unknown"
	}
	return strings.ReplaceAll(trimmed, " ", "_")
}
