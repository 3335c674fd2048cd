// Package metrics provides Prometheus metrics collection for the lottery
// recommendation engine. It covers recommendation serving, model inference,
// training cycles and the accuracy monitor, exposed via the /metrics
// endpoint of the service binary.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the recommendation engine.
type Metrics struct {
	// Recommendation metrics
	RecommendationsTotal prometheus.Counter   // Total combinations served
	GenerateDuration     prometheus.Histogram // End-to-end generation latency
	ConfidenceScores     prometheus.Histogram // Distribution of served confidence scores
	StatisticalServed    prometheus.Counter   // Requests served by the statistical engine
	ModelServed          prometheus.Counter   // Requests served by the trained model

	// ML metrics
	MLPredictions prometheus.Counter // Total model inference calls
	MLFailures    prometheus.Counter // Inference failures (recovered by fallback)
	MLFallbackUse prometheus.Counter // Times the statistical fallback was taken
	MLModelAge    prometheus.Gauge   // Age of the active model in seconds

	// Training metrics
	TrainingRuns     prometheus.Counter   // Retraining cycles started
	TrainingFailures prometheus.Counter   // Retraining cycles that failed
	TrainingDuration prometheus.Histogram // Duration of a full train/evaluate/save cycle
	TrainingAccuracy prometheus.Gauge     // Subset accuracy of the last trained model

	// Monitoring metrics
	RollingAccuracy   prometheus.Gauge   // Windowed prediction accuracy percentage
	PredictionRecords prometheus.Counter // Prediction records persisted

	// Feed metrics
	DrawsIngested prometheus.Counter // Draw results received from the feed
	FeedErrors    prometheus.Counter // Feed transport errors

	// System metrics
	ErrorsTotal prometheus.Counter // Total errors encountered
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		RecommendationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "recommendations_total",
			Help: "Total number of recommended combinations served",
		}),
		GenerateDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "recommendation_generate_duration_seconds",
			Help:    "End-to-end recommendation generation latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		ConfidenceScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "recommendation_confidence_scores",
			Help:    "Distribution of confidence scores on served combinations",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		StatisticalServed: factory.NewCounter(prometheus.CounterOpts{
			Name: "recommendations_statistical_total",
			Help: "Requests served by the statistical engine",
		}),
		ModelServed: factory.NewCounter(prometheus.CounterOpts{
			Name: "recommendations_model_total",
			Help: "Requests served by the trained model",
		}),
		MLPredictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_predictions_total",
			Help: "Total number of model inference calls",
		}),
		MLFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_failures_total",
			Help: "Total number of inference failures",
		}),
		MLFallbackUse: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_fallback_use_total",
			Help: "Total number of times the statistical fallback was used",
		}),
		MLModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ml_model_age_seconds",
			Help: "Age of the active trained model in seconds",
		}),
		TrainingRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "training_runs_total",
			Help: "Total number of retraining cycles started",
		}),
		TrainingFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "training_failures_total",
			Help: "Total number of retraining cycles that failed",
		}),
		TrainingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "training_duration_seconds",
			Help:    "Duration of a full train/evaluate/save cycle in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		TrainingAccuracy: factory.NewGauge(prometheus.GaugeOpts{
			Name: "training_subset_accuracy",
			Help: "Subset accuracy of the last trained model",
		}),
		RollingAccuracy: factory.NewGauge(prometheus.GaugeOpts{
			Name: "prediction_rolling_accuracy_percent",
			Help: "Windowed prediction accuracy percentage",
		}),
		PredictionRecords: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_records_total",
			Help: "Total number of prediction records persisted",
		}),
		DrawsIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "draws_ingested_total",
			Help: "Total number of draw results received from the feed",
		}),
		FeedErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "feed_errors_total",
			Help: "Total number of feed transport errors",
		}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors encountered",
		}),
	}
}
