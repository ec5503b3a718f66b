// Package telemetry registers the Prometheus instrumentation for the
// simulation service.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the registered collectors. One instance per process.
type Metrics struct {
	Registry *prometheus.Registry

	RunsTotal      *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec
	BatchesTotal   prometheus.Counter
	BatchAssets    prometheus.Histogram
	HazardFallback *prometheus.CounterVec
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
}

// New builds and registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_runs_total",
			Help: "Scenario runs by project type and outcome.",
		}, []string{"project_type", "status"}),
		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "atlas_run_duration_seconds",
			Help:    "Wall time of one scenario run.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"project_type"}),
		BatchesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "atlas_batches_total",
			Help: "Batch orchestrations started.",
		}),
		BatchAssets: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "atlas_batch_assets",
			Help:    "Assets per batch.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		HazardFallback: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_hazard_fallback_total",
			Help: "Hazard lookups answered by a fallback path, by field.",
		}, []string{"field"}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "atlas_hazard_cache_hits_total",
			Help: "Hazard cache hits.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "atlas_hazard_cache_misses_total",
			Help: "Hazard cache misses.",
		}),
	}
}
