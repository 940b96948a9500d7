// Package metrics exposes Prometheus instrumentation for the dashboard's external calls and
// interaction surfaces.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SurfaceOutcomes counts finished or refused interactions per surface ("search", "chat") and
	// outcome ("success", "timeout", "transport", "format", "configuration", "rejected", ...).
	SurfaceOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketwebui_surface_outcomes_total",
			Help: "Interactions per surface and outcome",
		},
		[]string{"surface", "outcome"},
	)
	// ProviderLatency observes the duration of external provider calls.
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketwebui_provider_latency_seconds",
			Help:    "Duration of external provider calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"surface", "provider"},
	)
	// ActiveSessions tracks the browser sessions currently held in memory.
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "marketwebui_active_sessions",
			Help: "Browser sessions held in memory",
		})
)

func init() {
	prometheus.MustRegister(
		SurfaceOutcomes,
		ProviderLatency,
		ActiveSessions,
	)
}

// ObserveCall records the latency of a provider call started at start.
func ObserveCall(surface, provider string, start time.Time) {
	ProviderLatency.WithLabelValues(surface, provider).Observe(time.Since(start).Seconds())
}

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
