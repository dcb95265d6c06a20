package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "riskradar"

// Metrics holds the Prometheus counters, histograms, and gauges for dataset
// building, training, and forecasting.
type Metrics struct {
	// Dataset metrics.
	DatasetCells     *prometheus.CounterVec // labels: hazard, outcome={built,dropped}
	DatasetPositives *prometheus.GaugeVec   // labels: hazard

	// Training metrics.
	TrainingDuration *prometheus.HistogramVec // labels: hazard
	ModelScore       *prometheus.GaugeVec     // labels: hazard, metric={precision,recall,f1,pr_auc,roc_auc,accuracy}

	// Forecast metrics.
	Forecasts           *prometheus.CounterVec   // labels: hazard, class={HIGH,LOW}
	ForecastErrors      *prometheus.CounterVec   // labels: hazard
	ForecastProbability *prometheus.HistogramVec // labels: hazard
	ForecastDuration    prometheus.Histogram
	ForecastLoopRunning prometheus.Gauge
	RecordsPublished    prometheus.Counter

	// Weather collaborator metrics.
	WeatherRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	WeatherCache       *prometheus.CounterVec // labels: result={hit,miss}
	WeatherAPIDuration prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.DatasetCells,
		m.DatasetPositives,
		m.TrainingDuration,
		m.ModelScore,
		m.Forecasts,
		m.ForecastErrors,
		m.ForecastProbability,
		m.ForecastDuration,
		m.ForecastLoopRunning,
		m.RecordsPublished,
		m.WeatherRequests,
		m.WeatherCache,
		m.WeatherAPIDuration,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as
// many instances as they need without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		DatasetCells: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_cells_total",
			Help:      "Dataset grid cells by hazard and outcome.",
		}, []string{"hazard", "outcome"}),
		DatasetPositives: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_positive_samples",
			Help:      "Positive samples in the most recently built dataset.",
		}, []string{"hazard"}),
		TrainingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "training_duration_seconds",
			Help:      "Wall time to fit and evaluate one model.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"hazard"}),
		ModelScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_score",
			Help:      "Held-out evaluation metrics of the active model.",
		}, []string{"hazard", "metric"}),
		Forecasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecasts_total",
			Help:      "Forecast records emitted by hazard and class.",
		}, []string{"hazard", "class"}),
		ForecastErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_errors_total",
			Help:      "Sites that could not be scored, by hazard.",
		}, []string{"hazard"}),
		ForecastProbability: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forecast_probability",
			Help:      "Distribution of forecast probabilities.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 9),
		}, []string{"hazard"}),
		ForecastDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forecast_run_duration_seconds",
			Help:      "Duration of a complete forecast run across all sites.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		ForecastLoopRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "forecast_loop_running",
			Help:      "1 when the periodic forecast loop is active, 0 when shut down.",
		}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_published_total",
			Help:      "Forecast records written to the sink topic.",
		}),
		WeatherRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_requests_total",
			Help:      "Weather API requests by outcome.",
		}, []string{"outcome"}),
		WeatherCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_cache_total",
			Help:      "Weather cache lookups by result.",
		}, []string{"result"}),
		WeatherAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "weather_api_duration_seconds",
			Help:      "Open-Meteo API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}
