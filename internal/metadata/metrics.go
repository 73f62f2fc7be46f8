package metadata

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "listing_enricher"

type recorderMetrics struct {
	fetches       *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	resolutions   *prometheus.CounterVec
	errors        *prometheus.CounterVec
	warnings      *prometheus.CounterVec
	artifacts     *prometheus.CounterVec
	passes        prometheus.Counter
}

// newRecorderMetrics creates the recorder collectors. A nil registerer
// yields working but unregistered collectors.
func newRecorderMetrics(registerer prometheus.Registerer) *recorderMetrics {
	factory := promauto.With(registerer)
	return &recorderMetrics{
		fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "gateway_fetches_total",
			Help:      "Gateway fetch attempts by HTTP status class.",
		}, []string{"status_class"}),
		fetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "gateway_fetch_duration_seconds",
			Help:      "Duration of single gateway fetch attempts.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "resolutions_total",
			Help:      "Resolved identifiers by result source.",
		}, []string{"source"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "errors_total",
			Help:      "Recorded pipeline errors by package and cause.",
		}, []string{"package", "cause"}),
		warnings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "warnings_total",
			Help:      "Recorded pipeline warnings by package.",
		}, []string{"package"}),
		artifacts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "artifacts_total",
			Help:      "Written artifacts by kind.",
		}, []string{"kind"}),
		passes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "passes_total",
			Help:      "Finished merge passes.",
		}),
	}
}

func statusClass(httpStatus int) string {
	if httpStatus < 100 || httpStatus > 599 {
		return "none"
	}
	return fmt.Sprintf("%dxx", httpStatus/100)
}
