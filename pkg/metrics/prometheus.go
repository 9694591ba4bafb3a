package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	predictions   *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	continuityGap *prometheus.HistogramVec
	persistence   *prometheus.CounterVec
}

// New registers the recorder on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the recorder on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		predictions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kronos_predictions_total",
				Help: "Prediction requests by window mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kronos_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kronos_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"operation"},
		),
		continuityGap: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kronos_continuity_gap_percent",
				Help:    "Percent gap between the first forecast bar and the first actual bar",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 25, 50},
			},
			[]string{"field"},
		),
		persistence: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kronos_persistence_total",
				Help: "Record store writes by store and result",
			},
			[]string{"store", "result"},
		),
	}
}

// RecordPrediction counts a prediction request.
func (r *Recorder) RecordPrediction(mode, outcome string) {
	r.predictions.WithLabelValues(mode, outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordContinuityGap observes a defined percent gap.
func (r *Recorder) RecordContinuityGap(field string, pct float64) {
	r.continuityGap.WithLabelValues(field).Observe(pct)
}

// RecordPersistence counts a store write.
func (r *Recorder) RecordPersistence(store, result string) {
	r.persistence.WithLabelValues(store, result).Inc()
}

// Noop discards all measurements.
type Noop struct{}

func (Noop) RecordPrediction(string, string) {}
func (Noop) RecordError(string) {}
func (Noop) RecordLatency(string, float64) {}
func (Noop) RecordContinuityGap(string, float64) {}
func (Noop) RecordPersistence(string, string) {}
