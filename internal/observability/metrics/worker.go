package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Job outcomes as seen by the queue consumer. Pipeline failures are "stored": the job
// row carries the failure, only infrastructure errors lead to redelivery.
const (
	JobOutcomeStored    = "stored"
	JobOutcomeRedeliver = "redeliver"
	JobOutcomeTimeout   = "timeout"
)

type WorkerMetrics struct {
	service  string
	registry *prometheus.Registry

	jobsTotal   *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	inFlight    prometheus.Gauge
	queueLag    prometheus.Histogram
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()
	labels := prometheus.Labels{"service": service}

	jobsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "jobs_total",
			Help:        "Parse jobs handled by the worker, by outcome.",
			ConstLabels: labels,
		},
		[]string{"outcome"},
	)
	jobDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "job_duration_seconds",
			Help:        "Wall time spent on one parse job, by outcome.",
			Buckets:     []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160, 320},
			ConstLabels: labels,
		},
		[]string{"outcome"},
	)
	inFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "jobs_in_flight",
			Help:        "Parse jobs currently being processed.",
			ConstLabels: labels,
		},
	)
	queueLag := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "queue_lag_seconds",
			Help:        "Delay between job publication and processing start.",
			Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			ConstLabels: labels,
		},
	)

	registry.MustRegister(jobsTotal, jobDuration, inFlight, queueLag)

	return &WorkerMetrics{
		service:     service,
		registry:    registry,
		jobsTotal:   jobsTotal,
		jobDuration: jobDuration,
		inFlight:    inFlight,
		queueLag:    queueLag,
	}
}

func (m *WorkerMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// TrackJob marks a job as started; the returned func records its outcome.
func (m *WorkerMetrics) TrackJob() func(err error) {
	start := time.Now()
	m.inFlight.Inc()
	return func(err error) {
		m.inFlight.Dec()
		outcome := JobOutcome(err)
		m.jobsTotal.WithLabelValues(outcome).Inc()
		m.jobDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}
}

func (m *WorkerMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.Observe(lag.Seconds())
}

func JobOutcome(err error) string {
	switch {
	case err == nil:
		return JobOutcomeStored
	case errors.Is(err, context.DeadlineExceeded):
		return JobOutcomeTimeout
	default:
		return JobOutcomeRedeliver
	}
}
