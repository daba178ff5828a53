package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	IssuesPublished   prometheus.Counter
	EmailsDelivered   prometheus.Counter
	DeliveriesRetried prometheus.Counter
	DeliveriesSkipped prometheus.Counter
	DeliveryLatency   prometheus.Histogram
	QueueDepth        prometheus.Gauge
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		IssuesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsletter_issues_published_total",
			Help: "Total number of accepted newsletter issue submissions.",
		}),
		EmailsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsletter_emails_delivered_total",
			Help: "Total number of successfully delivered issue emails.",
		}),
		DeliveriesRetried: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsletter_deliveries_retried_total",
			Help: "Total number of transient delivery failures left for retry.",
		}),
		DeliveriesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsletter_deliveries_skipped_total",
			Help: "Total number of recipients skipped permanently (invalid address or rejected content).",
		}),
		DeliveryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "newsletter_delivery_seconds",
			Help:    "Per-recipient delivery latency from claim to transport ack.",
			Buckets: prometheus.DefBuckets,
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "newsletter_delivery_queue_depth",
			Help: "Current number of pending delivery tasks in the outbox table.",
		}),
	}

	reg.MustRegister(
		m.IssuesPublished,
		m.EmailsDelivered,
		m.DeliveriesRetried,
		m.DeliveriesSkipped,
		m.DeliveryLatency,
		m.QueueDepth,
	)

	return m
}

// WorkerHooks returns the metric callbacks expected by worker.Hooks.
// Centralises the prometheus observation calls so the worker package stays
// metrics-agnostic.
func (m *Metrics) WorkerHooks() (
	onDelivered func(latency time.Duration),
	onRetried func(),
	onSkipped func(),
) {
	onDelivered = func(latency time.Duration) {
		m.EmailsDelivered.Inc()
		m.DeliveryLatency.Observe(latency.Seconds())
	}
	onRetried = func() { m.DeliveriesRetried.Inc() }
	onSkipped = func() { m.DeliveriesSkipped.Inc() }
	return
}
