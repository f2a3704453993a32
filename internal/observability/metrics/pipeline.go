package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics implements ports.ParseObserver.
type PipelineMetrics struct {
	service string

	outcomes      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	stageDuration *prometheus.HistogramVec
	confidence    *prometheus.HistogramVec
	breakerOpen   *prometheus.GaugeVec
}

func NewPipelineMetrics(registerer prometheus.Registerer, service string) *PipelineMetrics {
	outcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "parse_total",
			Help:      "Parse invocations by document source and outcome code.",
		},
		[]string{"service", "source", "code"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "parse_duration_seconds",
			Help:      "End-to-end parse duration in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"service", "source"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage in seconds.",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 2, 5, 10, 20, 40},
		},
		[]string{"service", "stage"},
	)
	confidence := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "model_confidence",
			Help:      "Model-reported confidence of completed extractions.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"service"},
	)
	breakerOpen := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "breaker_open",
			Help:      "1 while the circuit breaker for an operation is open.",
		},
		[]string{"service", "operation"},
	)

	registerer.MustRegister(outcomes, duration, stageDuration, confidence, breakerOpen)

	return &PipelineMetrics{
		service:       service,
		outcomes:      outcomes,
		duration:      duration,
		stageDuration: stageDuration,
		confidence:    confidence,
		breakerOpen:   breakerOpen,
	}
}

func (m *PipelineMetrics) ObserveStage(stage string, elapsed time.Duration) {
	m.stageDuration.WithLabelValues(m.service, stage).Observe(elapsed.Seconds())
}

func (m *PipelineMetrics) ObserveOutcome(source, code string, elapsed time.Duration) {
	m.outcomes.WithLabelValues(m.service, source, code).Inc()
	m.duration.WithLabelValues(m.service, source).Observe(elapsed.Seconds())
}

func (m *PipelineMetrics) ObserveConfidence(confidence float64) {
	m.confidence.WithLabelValues(m.service).Observe(confidence)
}

// SetBreakerOpen matches resilience.StateListener.
func (m *PipelineMetrics) SetBreakerOpen(operation string, open bool) {
	v := 0.0
	if open {
		v = 1
	}
	m.breakerOpen.WithLabelValues(m.service, operation).Set(v)
}
