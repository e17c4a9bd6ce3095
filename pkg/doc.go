// Package pkg provides quality control of geospatial deliveries for Go
// applications: raster imagery files and vector data stored in PostGIS.
//
// # Package Structure
//
// The pkg directory contains several specialized packages:
//
//   - reviewer: High-level API (recommended starting point)
//   - engine: Rule registry, isolated rule checks and the bounded worker pool
//   - rules: Rule implementations (raster, vector)
//   - raster: GeoTIFF and world file reader, per-band statistics
//   - geometry: PostGIS connection and spatial queries
//   - admissibility: Allow-list of table-to-table intersections
//   - report: Outcome aggregation, renderers and atomic report files
//   - types: Items, rules, tolerances and outcomes
//   - config: Run configuration loading and validation
//   - fileutil: Raster file discovery
//   - i18n: Report language
//   - metrics: Prometheus metrics of a run
//   - logger: Logging abstraction layer
//
// # Getting Started
//
//	import (
//	    "github.com/nsxbet/geoqc/pkg/config"
//	    "github.com/nsxbet/geoqc/pkg/reviewer"
//	    "github.com/nsxbet/geoqc/pkg/types"
//	)
//
//	func main() {
//	    cfg := config.DefaultConfig("ortho")
//	    cfg.Raster.Input = "/data/ortho"
//	    size, dev := 0.25, 0.01
//	    cfg.SetTolerance(types.RulePixelSize, types.DomainRaster, &size, &dev)
//
//	    r := reviewer.New(types.DomainRaster).WithConfigObject(cfg)
//	    result, err := r.ReviewRasters(context.Background())
//	    // Process results...
//	}
//
// # Rules
//
// Raster rules, applied to every GeoTIFF of a directory:
//   - pixel_size: both pixel sizes within conform ± deviation
//   - dig_level: bit depth of every band within tolerance
//   - bands_len: band count within tolerance
//   - rad_balance: mean share of pixels in the extreme bins at most conform + deviation
//   - nodata: share of NODATA pixels at most conform + deviation
//
// Vector rules, applied to every table of geometry_columns in a schema:
//   - invalid: geometries that are not valid, with reason and location
//   - duplicate: groups of spatially equal geometries
//   - multipart: geometries with more than one part
//   - intersect: overlaps with other tables not allowed by the admissibility policy
//   - null: missing or empty geometries
//
// The composite control "aall" selects every rule of the domain.
//
// # Error Handling
//
// A run distinguishes between:
//   - Offenses, returned as fail outcomes
//   - Rules that could not be evaluated on an item, returned as error outcomes
//   - Failures of the run itself, returned as error from Review
//
// One unreadable raster or failing query never stops the evaluation of the
// other items.
//
// # Cancellation
//
// Review stops between items when its context is cancelled and returns
// ctx.Err() without a report.
package pkg
