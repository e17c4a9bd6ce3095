package vector

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/nsxbet/geoqc/pkg/geometry"
)

// vertexTolerance is the distance under which a contact point is considered
// to be a vertex of an input geometry.
const vertexTolerance = 1e-6

const (
	reasonCrosses      = "crosses"
	reasonNotPointLine = "intersection is not a point or line"
	reasonNotAtVertex  = "contact outside the vertices of both geometries"
	reasonNotLinear    = "not a line-line or line-polygon intersection"
	reasonUnparsable   = "intersection geometry could not be analysed"
)

// strictViolation re-examines an intersection between admissible tables.
// Only line-line and line-polygon contacts whose end points are vertices of
// one of the inputs are accepted; it returns the reason for anything else,
// or "" when the contact is accepted.
func strictViolation(hit geometry.Intersection) string {
	if hit.Crosses {
		return reasonCrosses
	}

	shared, err := decode(hit.GeoJSON)
	if err != nil {
		return reasonUnparsable
	}
	var contacts []orb.Point
	switch g := shared.(type) {
	case orb.Point:
		contacts = []orb.Point{g}
	case orb.LineString:
		if len(g) == 0 {
			return reasonNotPointLine
		}
		contacts = []orb.Point{g[0], g[len(g)-1]}
	default:
		return reasonNotPointLine
	}

	left, err := decode(hit.LeftGeoJSON)
	if err != nil {
		return reasonUnparsable
	}
	right, err := decode(hit.RightGeoJSON)
	if err != nil {
		return reasonUnparsable
	}
	if !linearContact(left, right) {
		return reasonNotLinear
	}

	for _, p := range contacts {
		if !isVertex(p, left) && !isVertex(p, right) {
			return reasonNotAtVertex
		}
	}
	return ""
}

func decode(data string) (orb.Geometry, error) {
	g, err := geojson.UnmarshalGeometry([]byte(data))
	if err != nil {
		return nil, err
	}
	return g.Geometry(), nil
}

func isLine(g orb.Geometry) bool {
	switch g.(type) {
	case orb.LineString, orb.MultiLineString:
		return true
	}
	return false
}

func isPolygon(g orb.Geometry) bool {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return true
	}
	return false
}

func linearContact(a, b orb.Geometry) bool {
	return (isLine(a) && (isLine(b) || isPolygon(b))) || (isPolygon(a) && isLine(b))
}

// isVertex reports whether p is one of the vertices of g.
func isVertex(p orb.Point, g orb.Geometry) bool {
	for _, v := range vertices(g) {
		if planar.Distance(p, v) <= vertexTolerance {
			return true
		}
	}
	return false
}

func vertices(g orb.Geometry) []orb.Point {
	switch g := g.(type) {
	case orb.Point:
		return []orb.Point{g}
	case orb.MultiPoint:
		return g
	case orb.LineString:
		return g
	case orb.Ring:
		return g
	case orb.MultiLineString:
		var out []orb.Point
		for _, ls := range g {
			out = append(out, ls...)
		}
		return out
	case orb.Polygon:
		var out []orb.Point
		for _, r := range g {
			out = append(out, r...)
		}
		return out
	case orb.MultiPolygon:
		var out []orb.Point
		for _, p := range g {
			out = append(out, vertices(p)...)
		}
		return out
	case orb.Collection:
		var out []orb.Point
		for _, c := range g {
			out = append(out, vertices(c)...)
		}
		return out
	}
	return nil
}
