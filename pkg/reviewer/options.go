package reviewer

import (
	"github.com/nsxbet/geoqc/pkg/admissibility"
	"github.com/nsxbet/geoqc/pkg/engine"
	"github.com/nsxbet/geoqc/pkg/metrics"
	"github.com/nsxbet/geoqc/pkg/types"
)

// ReviewOption is a functional option for customizing review behavior.
type ReviewOption func(*reviewOptions)

// reviewOptions holds optional configuration for a review operation.
type reviewOptions struct {
	runID      string
	geometry   engine.GeometrySource
	tables     []types.Table
	policy     *admissibility.Policy
	openRaster engine.RasterOpener
	metrics    *metrics.Metrics
	onOutcome  func(*types.Outcome)
}

func newReviewOptions(opts []ReviewOption) *reviewOptions {
	reviewOpts := &reviewOptions{}
	for _, opt := range opts {
		opt(reviewOpts)
	}
	return reviewOpts
}

// WithRunID sets the identifier written in the report.
//
// Example:
//
//	result, err := r.Review(ctx, items, WithRunID(uuid.NewString()))
func WithRunID(id string) ReviewOption {
	return func(opts *reviewOptions) {
		opts.runID = id
	}
}

// WithGeometry provides the spatial query runner used by vector rules,
// usually a *geometry.Inspector.
//
// Example:
//
//	db, _ := geometry.Connect(ctx, cfg.Vector.Connection, logger)
//	result, err := r.Review(ctx, items, WithGeometry(geometry.NewInspector(db, logger)))
func WithGeometry(src engine.GeometrySource) ReviewOption {
	return func(opts *reviewOptions) {
		opts.geometry = src
	}
}

// WithTables sets the tables intersect compares each table against. By
// default these are the vector items under review.
func WithTables(tables []types.Table) ReviewOption {
	return func(opts *reviewOptions) {
		opts.tables = tables
	}
}

// WithPolicy provides the admissible intersections, replacing the file
// named in the configuration.
func WithPolicy(p *admissibility.Policy) ReviewOption {
	return func(opts *reviewOptions) {
		opts.policy = p
	}
}

// WithRasterOpener replaces the GeoTIFF reader used by raster rules.
func WithRasterOpener(open engine.RasterOpener) ReviewOption {
	return func(opts *reviewOptions) {
		opts.openRaster = open
	}
}

// WithMetrics records outcome counters and latencies.
func WithMetrics(m *metrics.Metrics) ReviewOption {
	return func(opts *reviewOptions) {
		opts.metrics = m
	}
}

// WithOutcomeHook receives every outcome as soon as it is produced. The hook
// may be called from several goroutines.
func WithOutcomeHook(fn func(*types.Outcome)) ReviewOption {
	return func(opts *reviewOptions) {
		opts.onOutcome = fn
	}
}
