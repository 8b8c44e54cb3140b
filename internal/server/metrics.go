package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the Prometheus collectors the job workers update.
type Metrics struct {
	registry *prometheus.Registry

	JobsTotal   *prometheus.CounterVec
	JobsRunning prometheus.Gauge
	Evaluations prometheus.Counter
	JobDuration prometheus.Histogram
}

// NewMetrics registers the job collectors on a fresh registry, so several
// servers can live in one process.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		JobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greywolf_jobs_total",
			Help: "Jobs that reached a final state.",
		}, []string{"state"}),
		JobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "greywolf_jobs_running",
			Help: "Jobs currently iterating.",
		}),
		Evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "greywolf_objective_evaluations_total",
			Help: "Objective function calls made by all jobs.",
		}),
		JobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "greywolf_job_duration_seconds",
			Help:    "Wall time of finished jobs.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
	}
	m.registry.MustRegister(
		m.JobsTotal,
		m.JobsRunning,
		m.Evaluations,
		m.JobDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) jobFinished(state JobState, seconds float64) {
	m.JobsTotal.WithLabelValues(string(state)).Inc()
	m.JobDuration.Observe(seconds)
}
