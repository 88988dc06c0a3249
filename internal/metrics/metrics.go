// Package metrics turns engine bus events into Prometheus series.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nutricare/internal/eventbus"
)

const namespace = "nutricare"

// Metrics owns a private registry so several instances (tests, restarts)
// never collide on the default one.
type Metrics struct {
	reg *prometheus.Registry

	scheduled *prometheus.CounterVec
	cancelled *prometheus.CounterVec
	failed    *prometheus.CounterVec
	delivered *prometheus.CounterVec
	actions   *prometheus.CounterVec

	bootstraps        prometheus.Counter
	bootstrapDuration prometheus.Histogram
	lastScheduled     prometheus.Gauge
	lastPruned        prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		scheduled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminder",
			Name:      "scheduled_total",
			Help:      "Triggers created, by family.",
		}, []string{"family"}),
		cancelled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminder",
			Name:      "cancelled_total",
			Help:      "Triggers cancelled, by family.",
		}, []string{"family"}),
		failed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminder",
			Name:      "failed_total",
			Help:      "Slots whose cancel or create failed, by family.",
		}, []string{"family"}),
		delivered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notification",
			Name:      "delivered_total",
			Help:      "Delivered notifications, by kind and handling context.",
		}, []string{"kind", "context"}),
		actions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notification",
			Name:      "actions_total",
			Help:      "Action button presses, by kind and action.",
		}, []string{"kind", "action"}),
		bootstraps: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bootstrap",
			Name:      "runs_total",
			Help:      "Bootstrap runs.",
		}),
		bootstrapDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bootstrap",
			Name:      "duration_seconds",
			Help:      "Bootstrap wall time.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		lastScheduled: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bootstrap",
			Name:      "last_scheduled",
			Help:      "Triggers scheduled by the most recent bootstrap.",
		}),
		lastPruned: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bootstrap",
			Name:      "last_pruned",
			Help:      "Stale triggers cancelled by the most recent bootstrap.",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// RegisterPending exposes the number of live triggers, read on scrape.
func (m *Metrics) RegisterPending(fn func() int) {
	promauto.With(m.reg).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "reminder",
		Name:      "pending",
		Help:      "Live platform triggers.",
	}, func() float64 { return float64(fn()) })
}

// Observe updates series for one bus event. Unknown topics are ignored.
func (m *Metrics) Observe(e eventbus.Event) {
	switch e.Type {
	case eventbus.TopicReminderScheduled, eventbus.TopicReminderCancelled, eventbus.TopicReminderFailed:
		d, ok := e.Data.(eventbus.ReminderData)
		if !ok {
			return
		}
		switch e.Type {
		case eventbus.TopicReminderScheduled:
			m.scheduled.WithLabelValues(d.Family).Inc()
		case eventbus.TopicReminderCancelled:
			m.cancelled.WithLabelValues(d.Family).Inc()
		default:
			m.failed.WithLabelValues(d.Family).Inc()
		}
	case eventbus.TopicDelivered:
		if d, ok := e.Data.(eventbus.NotificationData); ok {
			m.delivered.WithLabelValues(d.Kind, d.Context).Inc()
		}
	case eventbus.TopicAction:
		if d, ok := e.Data.(eventbus.NotificationData); ok {
			m.actions.WithLabelValues(d.Kind, d.Action).Inc()
		}
	case eventbus.TopicBootstrap:
		if d, ok := e.Data.(eventbus.BootstrapData); ok {
			m.bootstraps.Inc()
			m.bootstrapDuration.Observe(d.Took.Seconds())
			m.lastScheduled.Set(float64(d.Scheduled))
			m.lastPruned.Set(float64(d.Pruned))
		}
	}
}

// Run consumes bus events until ctx is done.
func (m *Metrics) Run(ctx context.Context, bus eventbus.Bus) {
	events, unsub := bus.Subscribe(256)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			m.Observe(e)
		}
	}
}
