// Package geometry inspects the spatial tables of a PostGIS schema. Every
// check is a single read-only SQL query returning the offending feature ids
// in ascending order.
package geometry

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/nsxbet/geoqc/pkg/types"
)

// ErrQueryExecution is returned when a spatial query fails for a table.
var ErrQueryExecution = errors.New("query execution failed")

const (
	defaultIDColumn       = "id"
	defaultGeometryColumn = "geom"
)

// Querier is the subset of *sql.DB used by the inspector.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Inspector runs the spatial queries.
type Inspector struct {
	db     Querier
	logger *slog.Logger
}

// NewInspector returns an inspector over db.
func NewInspector(db Querier, logger *slog.Logger) *Inspector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inspector{db: db, logger: logger}
}

// InvalidFeature is a feature whose geometry is not OGC valid.
type InvalidFeature struct {
	ID       int64  `json:"id" yaml:"id"`
	Reason   string `json:"reason" yaml:"reason"`
	Location string `json:"location,omitempty" yaml:"location,omitempty"`
}

// MultipartFeature is a feature made of more than one geometry.
type MultipartFeature struct {
	ID    int64 `json:"id" yaml:"id"`
	Parts int   `json:"parts" yaml:"parts"`
}

// DuplicateGroup lists features with spatially equal geometries, ascending.
type DuplicateGroup []int64

// IntersectionKind classifies the shared geometry of two features.
type IntersectionKind string

const (
	IntersectionPoint      IntersectionKind = "point"
	IntersectionLine       IntersectionKind = "line"
	IntersectionPolygon    IntersectionKind = "polygon"
	IntersectionCollection IntersectionKind = "collection"
)

// Intersection is a feature of one table overlapping a feature of another
// table beyond a boundary touch.
type Intersection struct {
	ID         int64            `json:"id" yaml:"id"`
	OtherTable string           `json:"other_table" yaml:"other_table"`
	OtherID    int64            `json:"other_id" yaml:"other_id"`
	Kind       IntersectionKind `json:"kind" yaml:"kind"`
	Dimension  int              `json:"dimension" yaml:"dimension"`
	Crosses    bool             `json:"crosses" yaml:"crosses"`
	WKT        string           `json:"wkt,omitempty" yaml:"wkt,omitempty"`

	// GeoJSON of the intersection and of both input geometries.
	GeoJSON      string `json:"-" yaml:"-"`
	LeftGeoJSON  string `json:"-" yaml:"-"`
	RightGeoJSON string `json:"-" yaml:"-"`
}

// KindOf maps a PostGIS geometry type name to an intersection kind.
func KindOf(geometryType string) IntersectionKind {
	switch strings.ToUpper(strings.TrimSpace(geometryType)) {
	case "POINT", "MULTIPOINT":
		return IntersectionPoint
	case "LINESTRING", "MULTILINESTRING":
		return IntersectionLine
	case "POLYGON", "MULTIPOLYGON":
		return IntersectionPolygon
	default:
		return IntersectionCollection
	}
}

func relation(t types.Table) string {
	if t.Schema == "" {
		return pgx.Identifier{t.Name}.Sanitize()
	}
	return pgx.Identifier{t.Schema, t.Name}.Sanitize()
}

func geomColumn(t types.Table) string {
	if t.GeometryColumn == "" {
		return pgx.Identifier{defaultGeometryColumn}.Sanitize()
	}
	return pgx.Identifier{t.GeometryColumn}.Sanitize()
}

func idColumn(t types.Table) string {
	if t.IDColumn == "" {
		return pgx.Identifier{defaultIDColumn}.Sanitize()
	}
	return pgx.Identifier{t.IDColumn}.Sanitize()
}

func queryError(t types.Table, what string, err error) error {
	return errors.Wrapf(ErrQueryExecution, "%s: %s: %v", t.ID(), what, err)
}
