// Package metrics exposes pipeline counters on a private prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "policyrag"

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	questions     *prometheus.CounterVec
	askDuration   prometheus.Histogram
	builds        *prometheus.CounterVec
	buildDuration prometheus.Histogram
	chunks        prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		questions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_total",
			Help:      "Questions answered, by outcome.",
		}, []string{"outcome"}),
		askDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ask_duration_seconds",
			Help:      "End-to-end question latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_builds_total",
			Help:      "Index initialisations and rebuilds, by source and outcome.",
		}, []string{"source", "outcome"}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_build_duration_seconds",
			Help:      "Time spent building or loading the index.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		chunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_chunks",
			Help:      "Chunks in the active index.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.questions, m.askDuration, m.builds, m.buildDuration, m.chunks,
	)
	return m
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveAsk records one question with its outcome label.
func (m *Metrics) ObserveAsk(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.questions.WithLabelValues(outcome).Inc()
	m.askDuration.Observe(d.Seconds())
}

// ObserveBuild records an index load or build. source is "load", "build" or "rebuild".
func (m *Metrics) ObserveBuild(source string, err error, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.builds.WithLabelValues(source, outcome).Inc()
	m.buildDuration.Observe(d.Seconds())
}

// SetChunks sets the active index size.
func (m *Metrics) SetChunks(n int) {
	if m == nil {
		return
	}
	m.chunks.Set(float64(n))
}
