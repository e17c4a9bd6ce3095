// Package metrics exposes run metrics of the quality checks in the Prometheus
// exposition format. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for a quality control run.
type Metrics struct {
	registry *prometheus.Registry

	// Rule outcomes by domain, rule and verdict
	Outcomes *prometheus.CounterVec

	// Duration of a single rule check by rule
	CheckLatency *prometheus.HistogramVec

	// Items fully evaluated by domain
	Items *prometheus.CounterVec

	// Wall time of the whole run
	RunLatency prometheus.Histogram
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,

		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "geoqc_rule_outcomes_total",
			Help: "Rule outcomes by domain, rule and verdict",
		}, []string{"domain", "rule", "verdict"}),

		CheckLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "geoqc_rule_check_duration_seconds",
			Help:    "Duration of one rule check on one item",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"rule"}),

		Items: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "geoqc_items_evaluated_total",
			Help: "Items evaluated by domain",
		}, []string{"domain"}),

		RunLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "geoqc_run_duration_seconds",
			Help:    "Duration of a full quality control run",
			Buckets: []float64{1, 10, 60, 300, 900, 3600, 4 * 3600},
		}),
	}
}

// ObserveOutcome records the verdict of a rule check and how long it took.
func (m *Metrics) ObserveOutcome(domain, rule, verdict string, d time.Duration) {
	if m != nil {
		m.Outcomes.WithLabelValues(domain, rule, verdict).Inc()
		m.CheckLatency.WithLabelValues(rule).Observe(d.Seconds())
	}
}

// IncrementItems records a fully evaluated item.
func (m *Metrics) IncrementItems(domain string) {
	if m != nil {
		m.Items.WithLabelValues(domain).Inc()
	}
}

// ObserveRunLatency records the total run duration.
func (m *Metrics) ObserveRunLatency(d time.Duration) {
	if m != nil {
		m.RunLatency.Observe(d.Seconds())
	}
}

// Gatherer exposes the registry, e.g. for an HTTP handler or tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// WriteTextfile writes the metrics atomically for the node_exporter textfile
// collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.Wrapf(err, "failed to write metrics to %s", path)
	}
	return nil
}
