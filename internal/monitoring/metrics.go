// Package monitoring exposes the runtime's cumulative performance
// counters as Prometheus metrics.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the runtime's instrument set.
type Metrics struct {
	CollectionRuns   prometheus.Counter
	FusionDuration   prometheus.Histogram
	EventsEmitted    *prometheus.CounterVec
	EventsRejected   *prometheus.CounterVec
	DeliveryFailures prometheus.Counter
	PixelsLoaded     prometheus.Counter
	PixelLoadErrors  prometheus.Counter
	TriggerFires     *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers the instrument set on a fresh
// registry, one per orchestrator instance.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		CollectionRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "tagfusion_collection_runs_total",
			Help: "Full collection and fusion cycles executed.",
		}),
		FusionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tagfusion_fusion_duration_seconds",
			Help:    "Duration of the collect-and-fuse cycle.",
			Buckets: prometheus.DefBuckets,
		}),
		EventsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tagfusion_events_emitted_total",
			Help: "Standardized events emitted, by event name.",
		}, []string{"event"}),
		EventsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tagfusion_events_rejected_total",
			Help: "Events dropped before emission, by reason.",
		}, []string{"reason"}),
		DeliveryFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "tagfusion_delivery_failures_total",
			Help: "Collector deliveries that did not return 202.",
		}),
		PixelsLoaded: factory.NewCounter(prometheus.CounterOpts{
			Name: "tagfusion_pixels_loaded_total",
			Help: "Pixel runtimes loaded.",
		}),
		PixelLoadErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "tagfusion_pixel_load_errors_total",
			Help: "Pixel runtimes that failed to load.",
		}),
		TriggerFires: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tagfusion_trigger_fires_total",
			Help: "Trigger fires, by trigger kind.",
		}, []string{"kind"}),
		registry: registry,
	}
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for embedding layers that
// aggregate multiple registries.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
