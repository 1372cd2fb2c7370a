package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is the metrics surface used by the subscription engine.
type Recorder interface {
	IncTransition(to string)
	IncTransitionConflict(operation string)
	IncNotification(channel string, sent bool)
	ObserveSweep(job string, processed int, elapsed time.Duration)
	IncWebhook(event string, outcome string)
}

type Metrics struct {
	transitions   *prometheus.CounterVec
	conflicts     *prometheus.CounterVec
	notifications *prometheus.CounterVec
	sweepItems    *prometheus.CounterVec
	sweepDuration *prometheus.HistogramVec
	webhooks      *prometheus.CounterVec
	registry      *prometheus.Registry
}

func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subscription_transitions_total",
				Help: "Subscription status transitions applied, by target status",
			},
			[]string{"status"},
		),
		conflicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subscription_transition_conflicts_total",
				Help: "Transitions skipped because the row changed underneath",
			},
			[]string{"operation"},
		),
		notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_total",
				Help: "Notification delivery attempts by channel and outcome",
			},
			[]string{"channel", "sent"},
		),
		sweepItems: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subscription_sweep_items_total",
				Help: "Subscriptions processed by sweep jobs",
			},
			[]string{"job"},
		),
		sweepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "subscription_sweep_duration_seconds",
				Help:    "Sweep job run time",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 7),
			},
			[]string{"job"},
		),
		webhooks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_webhooks_total",
				Help: "Payment webhooks received by event and outcome",
			},
			[]string{"event", "outcome"},
		),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// TrackGauge registers a gauge whose value is read from fn at scrape time.
func (m *Metrics) TrackGauge(name, help string, fn func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, fn))
}

func (m *Metrics) IncTransition(to string) {
	m.transitions.WithLabelValues(to).Inc()
}

func (m *Metrics) IncTransitionConflict(operation string) {
	m.conflicts.WithLabelValues(operation).Inc()
}

func (m *Metrics) IncNotification(channel string, sent bool) {
	m.notifications.WithLabelValues(channel, strconv.FormatBool(sent)).Inc()
}

func (m *Metrics) ObserveSweep(job string, processed int, elapsed time.Duration) {
	m.sweepItems.WithLabelValues(job).Add(float64(processed))
	m.sweepDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}

func (m *Metrics) IncWebhook(event string, outcome string) {
	m.webhooks.WithLabelValues(event, outcome).Inc()
}

var _ Recorder = (*Metrics)(nil)
