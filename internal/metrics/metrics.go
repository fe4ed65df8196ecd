// Package metrics exposes Prometheus instrumentation for tree operations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "modeltree"

// Metrics holds the collectors and the registry they are registered on.
type Metrics struct {
	registry *prometheus.Registry

	ops        *prometheus.CounterVec
	opDuration *prometheus.HistogramVec
	models     prometheus.Gauge
	reloads    *prometheus.CounterVec
}

// New creates a registry with the tree collectors plus the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Tree operations by name and outcome.",
			},
			[]string{"op", "outcome"},
		),
		opDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Time spent applying tree operations.",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
			},
			[]string{"op"},
		),
		models: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "models",
			Help:      "Number of models currently in the store.",
		}),
		reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reloads_total",
				Help:      "Model directory reloads by outcome.",
			},
			[]string{"outcome"},
		),
	}
	m.registry.MustRegister(
		m.ops, m.opDuration, m.models, m.reloads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveOp records one operation. A nil receiver is a no-op so callers can
// run without instrumentation.
func (m *Metrics) ObserveOp(op string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ops.WithLabelValues(op, outcome(err)).Inc()
	m.opDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveReload records one reload attempt.
func (m *Metrics) ObserveReload(err error) {
	if m == nil {
		return
	}
	m.reloads.WithLabelValues(outcome(err)).Inc()
}

// SetModels updates the model count gauge.
func (m *Metrics) SetModels(n int) {
	if m == nil {
		return
	}
	m.models.Set(float64(n))
}

// WatchClients exposes the number of connected event stream clients,
// sampled from count at scrape time.
func (m *Metrics) WatchClients(count func() int) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "event_clients",
		Help:      "Connected Server-Sent Events clients.",
	}, func() float64 { return float64(count()) }))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
