package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "floodview"

// Metrics holds the Prometheus counters, histograms, and gauges for the viewer.
type Metrics struct {
	// Catalog loading.
	CatalogLoads   *prometheus.CounterVec // labels: catalog={images,aois}, outcome={success,error}
	CatalogsLoaded prometheus.Gauge

	// View controller.
	ViewRefreshes        prometheus.Counter
	RasterSourcesMissing prometheus.Counter
	SelectionChanges     prometheus.Counter

	// Backend calls.
	BackendRequests *prometheus.CounterVec   // labels: endpoint, outcome={success,error}
	BackendDuration *prometheus.HistogramVec // labels: endpoint
	ImageIDCache    *prometheus.CounterVec   // labels: result={hit,miss}

	// Annotations.
	AnnotationsSaved     prometheus.Counter
	AnnotationsPublished *prometheus.CounterVec // labels: outcome={success,error}
	StaleOverlayDiscards prometheus.Counter
}

// NewMetrics creates and registers all viewer metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.CatalogLoads,
		m.CatalogsLoaded,
		m.ViewRefreshes,
		m.RasterSourcesMissing,
		m.SelectionChanges,
		m.BackendRequests,
		m.BackendDuration,
		m.ImageIDCache,
		m.AnnotationsSaved,
		m.AnnotationsPublished,
		m.StaleOverlayDiscards,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		CatalogLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_loads_total",
			Help:      "Catalog fixture fetches by catalog and outcome.",
		}, []string{"catalog", "outcome"}),
		CatalogsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalogs_loaded",
			Help:      "1 once both catalogs are loaded and the view is initialised.",
		}),
		ViewRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_refreshes_total",
			Help:      "Layer group rebuilds triggered by selection or slider changes.",
		}),
		RasterSourcesMissing: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "raster_sources_missing_total",
			Help:      "Refreshes where the satellite image catalog had no entry for the AOI and date.",
		}),
		SelectionChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selection_changes_total",
			Help:      "AOI or model selections applied to the view.",
		}),
		BackendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Backend API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		BackendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Backend API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"endpoint"}),
		ImageIDCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_id_cache_total",
			Help:      "Satellite image id cache lookups by result.",
		}, []string{"result"}),
		AnnotationsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "annotations_saved_total",
			Help:      "Annotations persisted through the backend.",
		}),
		AnnotationsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "annotations_published_total",
			Help:      "Saved-annotation events published to Kafka by outcome.",
		}, []string{"outcome"}),
		StaleOverlayDiscards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_overlay_discards_total",
			Help:      "Annotation overlay responses dropped because the view moved on.",
		}),
	}
}
