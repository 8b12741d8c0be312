// Package metrics provides Prometheus metrics for the valuation service:
// prediction volume and latency, fallback and validation counters, and
// model registry health, exposed on the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	PredictionsTotal   prometheus.Counter   // Predictions served, ensemble and fallback
	PredictionFailures prometheus.Counter   // Requests that returned an error
	FallbackUse        prometheus.Counter   // Predictions answered by the fallback estimator
	ValidationErrors   prometheus.Counter   // Requests rejected for malformed input
	ModelLoadFailures  prometheus.Counter   // Artifacts skipped during registry load
	PredictionLatency  prometheus.Histogram // End-to-end facade latency in seconds
	ConfidenceScores   prometheus.Histogram // Distribution of reported confidence
	LoadedModels       prometheus.Gauge     // Models currently in the registry
	ModelAge           prometheus.Gauge     // Age of the newest loaded model in seconds
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry, keeping tests
// isolated from the global one.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		PredictionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of predictions served",
		}),
		PredictionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_failures_total",
			Help: "Total number of prediction requests that returned an error",
		}),
		FallbackUse: factory.NewCounter(prometheus.CounterOpts{
			Name: "fallback_use_total",
			Help: "Total number of predictions answered by the fallback estimator",
		}),
		ValidationErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "validation_errors_total",
			Help: "Total number of requests rejected for malformed input",
		}),
		ModelLoadFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "model_load_failures_total",
			Help: "Total number of model artifacts skipped during load",
		}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_latency_seconds",
			Help:    "End-to-end prediction latency in seconds",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		ConfidenceScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_confidence_scores",
			Help:    "Distribution of reported prediction confidence",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		LoadedModels: factory.NewGauge(prometheus.GaugeOpts{
			Name: "loaded_models",
			Help: "Number of models currently in the registry",
		}),
		ModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_age_seconds",
			Help: "Age of the newest loaded model in seconds",
		}),
	}
}

// The methods below satisfy the recorder interface the prediction service
// depends on, so the service package needs no Prometheus import.

func (m *Metrics) PredictionsInc()             { m.PredictionsTotal.Inc() }
func (m *Metrics) PredictionFailuresInc()      { m.PredictionFailures.Inc() }
func (m *Metrics) FallbackUseInc()             { m.FallbackUse.Inc() }
func (m *Metrics) ValidationErrorsInc()        { m.ValidationErrors.Inc() }
func (m *Metrics) LatencyObserve(sec float64)  { m.PredictionLatency.Observe(sec) }
func (m *Metrics) ConfidenceObserve(c float64) { m.ConfidenceScores.Observe(c) }
