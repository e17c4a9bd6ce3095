// Package reviewer provides a high-level API for geospatial quality control.
//
// A Reviewer ties a run configuration to the rule engine: it discovers the
// items, prepares the inspectors and the admissibility policy, evaluates the
// selected rules and aggregates the outcomes into a report.
//
// # Raster deliveries
//
//	cfg := config.DefaultConfig("ortho")
//	cfg.Raster.Input = "/data/ortho"
//	cfg.SetTolerance(types.RulePixelSize, types.DomainRaster, &size, &dev)
//
//	r := reviewer.New(types.DomainRaster).WithConfigObject(cfg)
//	result, err := r.ReviewRasters(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result)
//
// # PostGIS schemas
//
//	db, err := geometry.Connect(ctx, cfg.Vector.Connection, logger)
//	...
//	r := reviewer.New(types.DomainVector).WithConfigObject(cfg)
//	result, err := r.ReviewSchema(ctx, geometry.NewInspector(db, logger))
package reviewer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/nsxbet/geoqc/pkg/admissibility"
	"github.com/nsxbet/geoqc/pkg/config"
	"github.com/nsxbet/geoqc/pkg/engine"
	"github.com/nsxbet/geoqc/pkg/fileutil"
	"github.com/nsxbet/geoqc/pkg/geometry"
	"github.com/nsxbet/geoqc/pkg/raster"
	"github.com/nsxbet/geoqc/pkg/report"
	_ "github.com/nsxbet/geoqc/pkg/rules/raster"
	_ "github.com/nsxbet/geoqc/pkg/rules/vector"
	"github.com/nsxbet/geoqc/pkg/types"
)

// SchemaSource lists the spatial tables of a schema and runs the spatial
// queries of the vector rules. *geometry.Inspector implements it.
type SchemaSource interface {
	engine.GeometrySource
	ListTables(ctx context.Context, schema string) ([]types.Table, error)
}

var _ SchemaSource = (*geometry.Inspector)(nil)

// Reviewer runs quality control over one domain.
//
// Reviewer is safe for concurrent use by multiple goroutines as long as its
// configuration is not replaced meanwhile.
type Reviewer struct {
	config *config.Config
	domain types.Domain
	logger *slog.Logger
}

// New creates a Reviewer for the domain with the default configuration.
//
// Example:
//
//	r := reviewer.New(types.DomainVector)
func New(domain types.Domain) *Reviewer {
	return &Reviewer{
		config: config.DefaultConfig(string(domain)),
		domain: domain,
		logger: slog.Default(),
	}
}

// WithConfig loads the configuration from a YAML or JSON file.
// This replaces the current configuration.
func (r *Reviewer) WithConfig(filename string) error {
	cfg, err := config.LoadFromFile(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to load config from %s", filename)
	}
	r.config = cfg
	return nil
}

// WithConfigObject sets a custom configuration object directly.
// This replaces the current configuration.
//
// Returns the Reviewer for method chaining.
func (r *Reviewer) WithConfigObject(cfg *config.Config) *Reviewer {
	r.config = cfg
	return r
}

// WithLogger sets the logger given to inspectors and rules.
func (r *Reviewer) WithLogger(l *slog.Logger) *Reviewer {
	if l != nil {
		r.logger = l
	}
	return r
}

// Config returns the current configuration.
func (r *Reviewer) Config() *config.Config {
	return r.config
}

// Domain returns the domain the reviewer checks.
func (r *Reviewer) Domain() types.Domain {
	return r.domain
}

// ReviewRasters discovers the raster files of the configured input directory
// and reviews them.
func (r *Reviewer) ReviewRasters(ctx context.Context, opts ...ReviewOption) (*ReviewResult, error) {
	if r.domain != types.DomainRaster {
		return nil, errors.Errorf("reviewer for %s data cannot review rasters", r.domain)
	}
	files, err := fileutil.FindRasters(r.config.Raster.Input, fileutil.Options{
		Recursive: r.config.Raster.Recursive,
		Patterns:  r.config.Raster.Patterns,
	})
	if err != nil {
		return nil, err
	}
	r.logger.Info("raster files found", "input", r.config.Raster.Input, "count", len(files), "recursive", r.config.Raster.Recursive)

	items := make([]types.Item, len(files))
	for i, f := range files {
		items[i] = f
	}
	return r.Review(ctx, items, opts...)
}

// ReviewSchema reviews every spatial table of the configured schema.
func (r *Reviewer) ReviewSchema(ctx context.Context, src SchemaSource, opts ...ReviewOption) (*ReviewResult, error) {
	if r.domain != types.DomainVector {
		return nil, errors.Errorf("reviewer for %s data cannot review a schema", r.domain)
	}
	policy, err := r.policy(newReviewOptions(opts).policy)
	if err != nil {
		return nil, err
	}

	tables, err := src.ListTables(ctx, r.config.Vector.Schema)
	if err != nil {
		return nil, err
	}
	r.logger.Info("spatial tables found", "schema", r.config.Vector.Schema, "count", len(tables))

	items := make([]types.Item, len(tables))
	for i, t := range tables {
		items[i] = t
	}
	opts = append([]ReviewOption{WithGeometry(src), WithTables(tables)}, opts...)
	opts = append(opts, WithPolicy(policy))
	return r.Review(ctx, items, opts...)
}

// Review applies the configured rules to items.
//
// The context parameter supports cancellation: evaluation stops between
// items and Review returns ctx.Err() without a result, so that no partial
// report is ever produced.
//
// Returns an error only if the review itself cannot run. A rule that cannot
// be evaluated on an item yields an error outcome instead.
func (r *Reviewer) Review(ctx context.Context, items []types.Item, opts ...ReviewOption) (*ReviewResult, error) {
	reviewOpts := newReviewOptions(opts)
	if reviewOpts.runID == "" {
		reviewOpts.runID = r.config.ID
	}

	base := engine.Context{
		Tolerances:          r.config.Tolerances,
		MaxBands:            r.config.Raster.MaxBands,
		StrictAdmissibility: r.config.Vector.StrictAdmissibles,
		Logger:              r.logger,
	}

	switch r.domain {
	case types.DomainRaster:
		base.OpenRaster = reviewOpts.openRaster
		if base.OpenRaster == nil {
			base.OpenRaster = r.openRaster
		}
	case types.DomainVector:
		policy, err := r.policy(reviewOpts.policy)
		if err != nil {
			return nil, err
		}
		base.Policy = policy
		base.Geometry = reviewOpts.geometry
		base.Tables = reviewOpts.tables
		if base.Tables == nil {
			for _, item := range items {
				if t, ok := item.(types.Table); ok {
					base.Tables = append(base.Tables, t)
				}
			}
		}
	default:
		return nil, errors.Errorf("unknown domain %q", r.domain)
	}

	agg := report.NewAggregator(reviewOpts.runID, r.domain, r.parameters(base.Policy))
	agg.SetItems(items)

	start := time.Now()
	outcomes, err := engine.Evaluate(ctx, items, r.config.Rules(r.domain), base, engine.Options{
		Concurrency: r.config.Concurrency,
		Metrics:     reviewOpts.metrics,
		OnOutcome: func(o *types.Outcome) {
			agg.Add(o)
			if reviewOpts.onOutcome != nil {
				reviewOpts.onOutcome(o)
			}
		},
	})
	if err != nil {
		return nil, err
	}
	reviewOpts.metrics.ObserveRunLatency(time.Since(start))

	result := &ReviewResult{
		Outcomes: outcomes,
		Report:   agg.Report(),
	}
	r.logger.Info("review finished", "items", len(items), "outcomes", len(outcomes), "offenses", result.HasOffenses(), "elapsed", time.Since(start))
	return result, nil
}

func (r *Reviewer) openRaster(file types.RasterFile) (engine.RasterMeasurer, error) {
	rs, err := raster.Open(file.Path, raster.Options{
		PreferWorldFile: r.config.Raster.PreferWorldFile,
		WorldFile:       file.WorldFile,
		Stats:           r.config.Raster.StatsOptions(),
		Logger:          r.logger,
	})
	if err != nil {
		return nil, err
	}
	return rs, nil
}

// LoadPolicy reads the admissibility file of the configuration. An empty
// path yields a policy that admits nothing.
func (r *Reviewer) LoadPolicy() (*admissibility.Policy, error) {
	return r.policy(nil)
}

func (r *Reviewer) policy(p *admissibility.Policy) (*admissibility.Policy, error) {
	if p == nil {
		var err error
		p, err = admissibility.Load(r.config.Vector.Admissibles)
		if err != nil {
			return nil, err
		}
	}
	if r.config.Vector.SymmetricAdmissibles {
		p = p.WithSymmetric()
	}
	return p, nil
}

// parameters are the run settings echoed in the report header.
func (r *Reviewer) parameters(policy *admissibility.Policy) map[string]string {
	cfg := r.config
	rules := cfg.Rules(r.domain)
	names := make([]string, len(rules))
	for i, rule := range rules {
		names[i] = string(rule)
	}

	params := map[string]string{
		"controls": strings.Join(names, ","),
	}
	switch r.domain {
	case types.DomainRaster:
		params["input"] = cfg.Raster.Input
		params["recursive"] = strconv.FormatBool(cfg.Raster.Recursive)
		params["prefer_world_file"] = strconv.FormatBool(cfg.Raster.PreferWorldFile)
		for _, rule := range rules {
			t := cfg.Tolerances[rule]
			params["tolerance."+string(rule)] = fmt.Sprintf("%g±%g", t.Conform, t.Deviation)
		}
		if stats := cfg.Raster.StatsOptions(); stats.Custom {
			params["rad_thresholds"] = fmt.Sprintf("%g..%g", stats.Low, stats.High)
		}
	case types.DomainVector:
		conn := cfg.Vector.Connection
		params["database"] = conn.Database
		params["host"] = conn.Host
		params["schema"] = cfg.Vector.Schema
		if cfg.Vector.Admissibles != "" {
			params["admissibles"] = cfg.Vector.Admissibles
		}
		params["admissible_entries"] = strconv.Itoa(policy.Len())
		params["symmetric_admissibles"] = strconv.FormatBool(policy.Symmetric())
		params["strict_admissibles"] = strconv.FormatBool(cfg.Vector.StrictAdmissibles)
	}
	return params
}

// Inventory describes every spatial table of the configured schema.
func (r *Reviewer) Inventory(ctx context.Context, inspector *geometry.Inspector) ([]*geometry.TableInfo, error) {
	tables, err := inspector.ListTables(ctx, r.config.Vector.Schema)
	if err != nil {
		return nil, err
	}
	infos := make([]*geometry.TableInfo, 0, len(tables))
	for _, t := range tables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := inspector.Describe(ctx, t)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	sort.SliceStable(infos, func(i, j int) bool { return infos[i].Table.ID() < infos[j].Table.ID() })
	return infos, nil
}
