package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOutcome("raster", "pixel_size", "pass", time.Millisecond)
		m.IncrementItems("raster")
		m.ObserveRunLatency(time.Second)
	})
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}

func TestMetrics_Record(t *testing.T) {
	m := New()
	m.ObserveOutcome("vector", "null", "fail", 10*time.Millisecond)
	m.ObserveOutcome("vector", "null", "fail", 20*time.Millisecond)
	m.ObserveOutcome("vector", "invalid", "pass", time.Millisecond)
	m.IncrementItems("vector")

	families, err := m.Gatherer().Gather()
	require.NoError(t, err)

	counts := make(map[string]float64)
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				key := f.GetName()
				for _, l := range metric.GetLabel() {
					key += "," + l.GetValue()
				}
				counts[key] = c.GetValue()
			}
		}
	}
	assert.Equal(t, 2.0, counts["geoqc_rule_outcomes_total,vector,null,fail"])
	assert.Equal(t, 1.0, counts["geoqc_rule_outcomes_total,vector,invalid,pass"])
	assert.Equal(t, 1.0, counts["geoqc_items_evaluated_total,vector"])

	// A second instance must not collide with the first registry.
	assert.NotPanics(t, func() { New() })
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := New()
	m.ObserveOutcome("raster", "nodata", "pass", time.Millisecond)

	path := filepath.Join(t.TempDir(), "geoqc.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `geoqc_rule_outcomes_total{domain="raster",rule="nodata",verdict="pass"} 1`)
}
