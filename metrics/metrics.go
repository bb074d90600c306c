package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RefreshRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parkspot_live_refresh_total",
		Help: "Total number of live availability refresh runs.",
	})
	RefreshFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parkspot_live_refresh_failures_total",
		Help: "Total number of refresh runs aborted by a remote fetch failure.",
	})
	RefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "parkspot_live_refresh_duration_seconds",
		Help:    "Duration of a full availability refresh, fetch included.",
		Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
	})
	ClustersTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "parkspot_live_clusters",
		Help: "Cluster count produced by the most recent refresh.",
	})
	PredictionsComputed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parkspot_predictions_computed_total",
		Help: "Total number of prediction payloads computed (cache misses).",
	})
	PredictionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parkspot_predictions_failures_total",
		Help: "Total number of failed prediction computations.",
	})
	PredictionCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parkspot_predictions_cache_hits_total",
		Help: "Total number of prediction requests served from cache.",
	})
)
