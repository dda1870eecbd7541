// Package metrics exposes Prometheus collectors for a collection run.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Enrichment stages used as the "stage" label.
const (
	StageNLP            = "nlp"
	StageKnowledgeGraph = "knowledge_graph"
)

// Metrics owns a private registry so runs and tests never share global state.
type Metrics struct {
	registry *prometheus.Registry

	itemsFetched       *prometheus.CounterVec
	itemsInserted      *prometheus.CounterVec
	insertFailures     *prometheus.CounterVec
	enrichmentFailures *prometheus.CounterVec
	collectorDuration  *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		itemsFetched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trends_items_fetched_total",
				Help: "Items returned by a platform source.",
			},
			[]string{"platform"},
		),
		itemsInserted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trends_items_inserted_total",
				Help: "Rows inserted into the destination store.",
			},
			[]string{"platform"},
		),
		insertFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trends_insert_failures_total",
				Help: "Rows the destination store rejected.",
			},
			[]string{"platform"},
		),
		enrichmentFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trends_enrichment_failures_total",
				Help: "Enrichment calls that degraded to defaults, labeled by stage.",
			},
			[]string{"platform", "stage"},
		),
		collectorDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trends_collector_duration_seconds",
				Help:    "Wall time of one collector run.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"platform"},
		),
	}
	m.registry.MustRegister(
		m.itemsFetched,
		m.itemsInserted,
		m.insertFailures,
		m.enrichmentFailures,
		m.collectorDuration,
	)
	return m
}

// Registry exposes the underlying registry (for tests and handlers).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveFetched records the number of items a source returned.
func (m *Metrics) ObserveFetched(platform string, n int) {
	if m == nil {
		return
	}
	m.itemsFetched.WithLabelValues(platform).Add(float64(n))
}

// ObserveInsert records one insert outcome.
func (m *Metrics) ObserveInsert(platform string, ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.itemsInserted.WithLabelValues(platform).Inc()
		return
	}
	m.insertFailures.WithLabelValues(platform).Inc()
}

// ObserveEnrichmentFailure records a degraded enrichment call.
func (m *Metrics) ObserveEnrichmentFailure(platform, stage string) {
	if m == nil {
		return
	}
	m.enrichmentFailures.WithLabelValues(platform, stage).Inc()
}

// ObserveDuration records how long a collector took.
func (m *Metrics) ObserveDuration(platform string, d time.Duration) {
	if m == nil {
		return
	}
	m.collectorDuration.WithLabelValues(platform).Observe(d.Seconds())
}

// Push sends the registry to a Pushgateway, grouped by run ID.
func (m *Metrics) Push(ctx context.Context, url, job, runID string) error {
	if m == nil || url == "" {
		return nil
	}
	err := push.New(url, job).
		Gatherer(m.registry).
		Grouping("run_id", runID).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
