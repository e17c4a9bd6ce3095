package geometry

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/nsxbet/geoqc/pkg/types"
)

// Invalid returns the features whose geometry is not valid, with the reason
// and location reported by ST_IsValidDetail.
func (i *Inspector) Invalid(ctx context.Context, t types.Table) ([]InvalidFeature, error) {
	query := fmt.Sprintf(`
		SELECT %[1]s, (d).reason, COALESCE(ST_AsText((d).location), '')
		FROM (
			SELECT %[1]s, ST_IsValidDetail(%[2]s) AS d
			FROM %[3]s
			WHERE %[2]s IS NOT NULL AND NOT ST_IsValid(%[2]s)
		) AS invalid
		ORDER BY %[1]s`, idColumn(t), geomColumn(t), relation(t))

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return nil, queryError(t, "invalid", err)
	}
	defer func() { _ = rows.Close() }()

	var out []InvalidFeature
	for rows.Next() {
		var (
			f      InvalidFeature
			reason sql.NullString
		)
		if err := rows.Scan(&f.ID, &reason, &f.Location); err != nil {
			return nil, queryError(t, "invalid", err)
		}
		f.Reason = reason.String
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(t, "invalid", err)
	}
	return out, nil
}

// Duplicates returns groups of features with spatially equal geometries.
// Groups are sorted by their smallest id.
func (i *Inspector) Duplicates(ctx context.Context, t types.Table) ([]DuplicateGroup, error) {
	query := fmt.Sprintf(`
		SELECT a.%[1]s, b.%[1]s
		FROM %[3]s AS a
		JOIN %[3]s AS b
		  ON a.%[1]s < b.%[1]s
		 AND a.%[2]s && b.%[2]s
		 AND ST_Equals(a.%[2]s, b.%[2]s)
		ORDER BY a.%[1]s, b.%[1]s`, idColumn(t), geomColumn(t), relation(t))

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return nil, queryError(t, "duplicate", err)
	}
	defer func() { _ = rows.Close() }()

	var pairs [][2]int64
	for rows.Next() {
		var p [2]int64
		if err := rows.Scan(&p[0], &p[1]); err != nil {
			return nil, queryError(t, "duplicate", err)
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(t, "duplicate", err)
	}
	return groupPairs(pairs), nil
}

// groupPairs merges equality pairs into connected groups.
func groupPairs(pairs [][2]int64) []DuplicateGroup {
	parent := make(map[int64]int64)
	var find func(int64) int64
	find = func(x int64) int64 {
		p, ok := parent[x]
		if !ok || p == x {
			parent[x] = x
			return x
		}
		root := find(p)
		parent[x] = root
		return root
	}
	for _, p := range pairs {
		ra, rb := find(p[0]), find(p[1])
		if ra == rb {
			continue
		}
		if ra < rb {
			parent[rb] = ra
		} else {
			parent[ra] = rb
		}
	}

	members := make(map[int64][]int64)
	for id := range parent {
		root := find(id)
		members[root] = append(members[root], id)
	}
	groups := make([]DuplicateGroup, 0, len(members))
	for _, ids := range members {
		slices.Sort(ids)
		groups = append(groups, DuplicateGroup(ids))
	}
	slices.SortFunc(groups, func(a, b DuplicateGroup) int {
		switch {
		case a[0] < b[0]:
			return -1
		case a[0] > b[0]:
			return 1
		}
		return 0
	})
	return groups
}

// Multipart returns the features made of more than one geometry.
func (i *Inspector) Multipart(ctx context.Context, t types.Table) ([]MultipartFeature, error) {
	query := fmt.Sprintf(`
		SELECT %[1]s, ST_NumGeometries(%[2]s)
		FROM %[3]s
		WHERE ST_NumGeometries(%[2]s) > 1
		ORDER BY %[1]s`, idColumn(t), geomColumn(t), relation(t))

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return nil, queryError(t, "multipart", err)
	}
	defer func() { _ = rows.Close() }()

	var out []MultipartFeature
	for rows.Next() {
		var f MultipartFeature
		if err := rows.Scan(&f.ID, &f.Parts); err != nil {
			return nil, queryError(t, "multipart", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(t, "multipart", err)
	}
	return out, nil
}

// Null returns the ids of features without a geometry or with an empty one.
func (i *Inspector) Null(ctx context.Context, t types.Table) ([]int64, error) {
	query := fmt.Sprintf(`
		SELECT %[1]s
		FROM %[3]s
		WHERE %[2]s IS NULL OR ST_IsEmpty(%[2]s)
		ORDER BY %[1]s`, idColumn(t), geomColumn(t), relation(t))

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return nil, queryError(t, "null", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, queryError(t, "null", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(t, "null", err)
	}
	return ids, nil
}

// Intersections returns the features of t overlapping a feature of other.
// Features sharing only a boundary are not reported.
func (i *Inspector) Intersections(ctx context.Context, t, other types.Table) ([]Intersection, error) {
	query := fmt.Sprintf(`
		SELECT a.%[1]s, b.%[3]s,
		       ST_Dimension(x.g), GeometryType(x.g), ST_AsText(x.g),
		       ST_AsGeoJSON(x.g), ST_AsGeoJSON(a.%[2]s), ST_AsGeoJSON(b.%[4]s),
		       ST_Crosses(a.%[2]s, b.%[4]s)
		FROM %[5]s AS a
		JOIN %[6]s AS b ON a.%[2]s && b.%[4]s
		CROSS JOIN LATERAL (SELECT ST_Intersection(a.%[2]s, b.%[4]s) AS g) AS x
		WHERE ST_Intersects(a.%[2]s, b.%[4]s)
		  AND NOT ST_Touches(a.%[2]s, b.%[4]s)
		ORDER BY a.%[1]s, b.%[3]s`,
		idColumn(t), geomColumn(t), idColumn(other), geomColumn(other), relation(t), relation(other))

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return nil, queryError(t, "intersect with "+other.ID(), err)
	}
	defer func() { _ = rows.Close() }()

	var out []Intersection
	for rows.Next() {
		var (
			hit                         Intersection
			dim                         sql.NullInt64
			gtype, wkt, gj, left, right sql.NullString
		)
		if err := rows.Scan(&hit.ID, &hit.OtherID, &dim, &gtype, &wkt, &gj, &left, &right, &hit.Crosses); err != nil {
			return nil, queryError(t, "intersect with "+other.ID(), err)
		}
		hit.OtherTable = other.ID()
		hit.Dimension = int(dim.Int64)
		hit.Kind = KindOf(gtype.String)
		hit.WKT = wkt.String
		hit.GeoJSON, hit.LeftGeoJSON, hit.RightGeoJSON = gj.String, left.String, right.String
		out = append(out, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(t, "intersect with "+other.ID(), err)
	}

	i.logger.Debug("intersections found", "table", t.ID(), "other", other.ID(), "count", len(out))
	return out, nil
}
