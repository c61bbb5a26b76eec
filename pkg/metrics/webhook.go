package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Webhook outcomes.
const (
	OutcomeApplied   = "applied"
	OutcomeNoop      = "noop"
	OutcomeIgnored   = "ignored"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// WebhookMetrics counts gateway events by type and outcome.
type WebhookMetrics struct {
	events   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewWebhookMetrics registers webhook metrics on reg.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "webhook",
		Name:      "events_total",
		Help:      "Payment gateway events received, by provider, type and outcome.",
	}, []string{"provider", "type", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "webhook",
		Name:      "event_duration_seconds",
		Help:      "Time spent applying a gateway event.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"provider", "type"})
	reg.MustRegister(events, duration)
	return &WebhookMetrics{events: events, duration: duration}
}

// Observe records one processed event.
func (w *WebhookMetrics) Observe(provider, eventType, outcome string, elapsed time.Duration) {
	if w == nil || w.events == nil {
		return
	}
	provider = normalizeLabel(provider)
	eventType = normalizeLabel(eventType)
	w.events.WithLabelValues(provider, eventType, normalizeLabel(outcome)).Inc()
	if elapsed > 0 {
		w.duration.WithLabelValues(provider, eventType).Observe(elapsed.Seconds())
	}
}
