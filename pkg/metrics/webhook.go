package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics records billing webhook processing outcomes.
type WebhookMetrics struct {
	processed  *prometheus.CounterVec
	duplicates prometheus.Counter
	failures   *prometheus.CounterVec
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_processed",
		Help: "Billing webhook events processed, by event type.",
	}, []string{"event_type"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webhook_events_duplicate",
		Help: "Billing webhook events skipped as already-seen replays.",
	})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_failed",
		Help: "Billing webhook events that failed processing, by event type.",
	}, []string{"event_type"})
	reg.MustRegister(processed, duplicates, failures)
	return &WebhookMetrics{
		processed:  processed,
		duplicates: duplicates,
		failures:   failures,
	}
}

// IncProcessed increments the processed counter for the event type.
func (w *WebhookMetrics) IncProcessed(eventType string) {
	if w == nil || w.processed == nil {
		return
	}
	w.processed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncDuplicate increments the duplicate replay counter.
func (w *WebhookMetrics) IncDuplicate() {
	if w == nil || w.duplicates == nil {
		return
	}
	w.duplicates.Inc()
}

// IncFailure increments the failure counter for the event type.
func (w *WebhookMetrics) IncFailure(eventType string) {
	if w == nil || w.failures == nil {
		return
	}
	w.failures.WithLabelValues(normalizeLabel(eventType)).Inc()
}
