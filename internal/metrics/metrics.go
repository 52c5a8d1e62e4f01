package metrics

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Item outcomes.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeDegraded  = "degraded"
	OutcomeFailed    = "failed"
	OutcomeDuplicate = "duplicate"
)

// Metrics holds the collectors on a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	itemsTotal       *prometheus.CounterVec
	externalFailures *prometheus.CounterVec
	storeMutations   *prometheus.CounterVec
	clusters         prometheus.Gauge
	pipelineDuration prometheus.Histogram
}

// New creates and registers the collectors.
func New() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		itemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bugsort_items_total",
			Help: "Items processed by the pipeline, by outcome",
		}, []string{"outcome"}),
		externalFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bugsort_external_failures_total",
			Help: "Failed OCR or embedding calls",
		}, []string{"service"}),
		storeMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bugsort_store_mutations_total",
			Help: "Cluster store mutations, by operation and result",
		}, []string{"op", "result"}),
		clusters: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bugsort_clusters",
			Help: "Clusters currently held by the store",
		}),
		pipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bugsort_pipeline_duration_seconds",
			Help:    "Wall time of pipeline runs",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
	collectors := []prometheus.Collector{
		m.itemsTotal, m.externalFailures, m.storeMutations, m.clusters, m.pipelineDuration,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return m, nil
}

// Registry exposes the private registry for tests and custom handlers.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      log.New(os.Stderr, "metrics handler: ", log.LstdFlags),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// ItemOutcome counts one processed item.
func (m *Metrics) ItemOutcome(outcome string) {
	if m == nil {
		return
	}
	m.itemsTotal.WithLabelValues(outcome).Inc()
}

// ExternalFailure counts a failed collaborator call.
func (m *Metrics) ExternalFailure(service string) {
	if m == nil {
		return
	}
	m.externalFailures.WithLabelValues(service).Inc()
}

// StoreMutation counts a store mutation attempt.
func (m *Metrics) StoreMutation(op, result string) {
	if m == nil {
		return
	}
	m.storeMutations.WithLabelValues(op, result).Inc()
}

// SetClusters records the current cluster count.
func (m *Metrics) SetClusters(n int) {
	if m == nil {
		return
	}
	m.clusters.Set(float64(n))
}

// ObservePipeline records a run duration.
func (m *Metrics) ObservePipeline(d time.Duration) {
	if m == nil {
		return
	}
	m.pipelineDuration.Observe(d.Seconds())
}
