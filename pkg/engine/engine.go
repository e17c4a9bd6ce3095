// Package engine applies quality rules to items. Rules register a Checker per
// domain from their package init; Evaluate runs every (item, rule) pair and
// turns any failure into an error outcome so one bad item never stops a run.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/pkg/errors"

	"github.com/nsxbet/geoqc/pkg/admissibility"
	"github.com/nsxbet/geoqc/pkg/geometry"
	"github.com/nsxbet/geoqc/pkg/logger"
	"github.com/nsxbet/geoqc/pkg/raster"
	"github.com/nsxbet/geoqc/pkg/types"
)

// RasterMeasurer is the view of an opened raster used by raster rules.
type RasterMeasurer interface {
	PixelSize() (x, y float64)
	BandCount() int
	BitDepths() []int
	DataTypes() []string
	NoData() (float64, bool)
	Stats(ctx context.Context) ([]raster.BandStats, error)
}

// RasterOpener opens a raster file for measurement.
type RasterOpener func(file types.RasterFile) (RasterMeasurer, error)

// GeometrySource runs the spatial queries used by vector rules.
type GeometrySource interface {
	Invalid(ctx context.Context, t types.Table) ([]geometry.InvalidFeature, error)
	Duplicates(ctx context.Context, t types.Table) ([]geometry.DuplicateGroup, error)
	Multipart(ctx context.Context, t types.Table) ([]geometry.MultipartFeature, error)
	Null(ctx context.Context, t types.Table) ([]int64, error)
	Intersections(ctx context.Context, t, other types.Table) ([]geometry.Intersection, error)
}

// Context is everything a checker needs to evaluate one rule on one item.
type Context struct {
	Item types.Item
	// Tolerance is the tolerance of the rule being checked.
	Tolerance types.Tolerance
	// Tolerances holds the tolerance of every rule; Evaluate copies the
	// matching entry into Tolerance.
	Tolerances map[types.Rule]types.Tolerance

	// OpenRaster opens raster items. Evaluate replaces it per item with a
	// memoised opener shared by all rules of the item.
	OpenRaster RasterOpener

	Geometry GeometrySource
	Policy   *admissibility.Policy
	// Tables lists every spatial table of the schema under inspection.
	Tables []types.Table

	// MaxBands limits dig_level to the first bands; 0 checks all bands.
	MaxBands int
	// StrictAdmissibility re-examines admissible intersections geometrically.
	StrictAdmissibility bool

	Logger *slog.Logger
}

// Raster returns the measurer of the current raster item.
func (c Context) Raster() (RasterMeasurer, error) {
	file, ok := c.Item.(types.RasterFile)
	if !ok {
		return nil, errors.Errorf("item %s is not a raster file", c.Item.ID())
	}
	if c.OpenRaster == nil {
		return nil, errors.New("no raster opener configured")
	}
	return c.OpenRaster(file)
}

// Table returns the current vector item.
func (c Context) Table() (types.Table, error) {
	t, ok := c.Item.(types.Table)
	if !ok {
		return types.Table{}, errors.Errorf("item %s is not a table", c.Item.ID())
	}
	if c.Geometry == nil {
		return types.Table{}, errors.New("no geometry source configured")
	}
	return t, nil
}

// Checker evaluates one rule on one item. A returned error means the rule
// could not be evaluated; a violated rule is a fail outcome, not an error.
type Checker interface {
	Check(ctx context.Context, checkCtx Context) (*types.Outcome, error)
}

var (
	checkerMu sync.RWMutex
	checkers  = make(map[types.Domain]map[types.Rule]Checker)
)

// Register makes a checker available for the rule of a domain.
// If Register is called twice for the same rule or if checker is nil,
// it panics.
func Register(domain types.Domain, rule types.Rule, c Checker) {
	checkerMu.Lock()
	defer checkerMu.Unlock()
	if c == nil {
		panic("engine: Register checker is nil")
	}
	domainCheckers, ok := checkers[domain]
	if !ok {
		checkers[domain] = map[types.Rule]Checker{
			rule: c,
		}
	} else {
		if _, dup := domainCheckers[rule]; dup {
			panic(fmt.Sprintf("engine: Register called twice for rule %v for %v", rule, domain))
		}
		domainCheckers[rule] = c
	}
}

// Registered reports whether a checker exists for the rule of a domain.
func Registered(domain types.Domain, rule types.Rule) bool {
	checkerMu.RLock()
	defer checkerMu.RUnlock()
	_, ok := checkers[domain][rule]
	return ok
}

// Check runs the checker of a rule. Panics are recovered and reported as
// errors.
func Check(ctx context.Context, domain types.Domain, rule types.Rule, checkCtx Context) (outcome *types.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			panicErr, ok := r.(error)
			if !ok {
				panicErr = errors.Errorf("%v", r)
			}
			outcome = nil
			err = errors.Errorf("rule check PANIC RECOVER, rule: %v, err: %v", rule, panicErr)
			l := checkCtx.Logger
			if l == nil {
				l = slog.Default()
			}
			l.Error("rule check PANIC RECOVER", "rule", rule, logger.Error(panicErr), logger.Stack(string(debug.Stack())))
		}
	}()

	checkerMu.RLock()
	domainCheckers, ok := checkers[domain]
	if !ok {
		checkerMu.RUnlock()
		return nil, errors.Errorf("engine: unknown domain %v", domain)
	}
	c, ok := domainCheckers[rule]
	checkerMu.RUnlock()
	if !ok {
		return nil, errors.Errorf("engine: unknown rule %v for %v", rule, domain)
	}

	return c.Check(ctx, checkCtx)
}
