package vector

import (
	"context"
	"sort"

	"github.com/nsxbet/geoqc/pkg/engine"
	"github.com/nsxbet/geoqc/pkg/geometry"
	"github.com/nsxbet/geoqc/pkg/types"
)

var _ engine.Checker = (*IntersectChecker)(nil)

func init() {
	engine.Register(types.DomainVector, types.RuleIntersect, &IntersectChecker{})
}

// IntersectChecker reports features overlapping features of the other tables
// of the schema, unless the admissibility policy allows the table pair.
type IntersectChecker struct{}

const reasonNotAdmissible = "not admissible intersection"

func (*IntersectChecker) Check(ctx context.Context, checkCtx engine.Context) (*types.Outcome, error) {
	table, err := checkCtx.Table()
	if err != nil {
		return nil, err
	}

	var (
		offenders []types.Offender
		compared  int
		admitted  int
	)
	for _, other := range checkCtx.Tables {
		if other.ID() == table.ID() {
			continue
		}
		compared++

		hits, err := checkCtx.Geometry.Intersections(ctx, table, other)
		if err != nil {
			return nil, err
		}
		for _, hit := range hits {
			reason := reasonNotAdmissible
			if checkCtx.Policy.IsAdmissible(table.ID(), other.ID()) {
				if !checkCtx.StrictAdmissibility {
					admitted++
					continue
				}
				reason = strictViolation(hit)
				if reason == "" {
					admitted++
					continue
				}
			}
			offenders = append(offenders, intersectionOffender(hit, reason))
		}
	}

	sort.SliceStable(offenders, func(i, j int) bool {
		return offenders[i].ID < offenders[j].ID
	})

	o := offendingOutcome(checkCtx, types.RuleIntersect, offenders)
	o.Metrics["tables_compared"] = float64(compared)
	o.Metrics["admitted"] = float64(admitted)
	for _, kind := range []geometry.IntersectionKind{
		geometry.IntersectionPoint, geometry.IntersectionLine,
		geometry.IntersectionPolygon, geometry.IntersectionCollection,
	} {
		o.Metrics[string(kind)] = 0
	}
	for _, off := range offenders {
		o.Metrics[off.Kind]++
	}
	if compared == 0 {
		o.Detail = "no other spatial table in schema"
	}
	return o, nil
}

func intersectionOffender(hit geometry.Intersection, reason string) types.Offender {
	return types.Offender{
		ID:           hit.ID,
		Related:      []int64{hit.OtherID},
		RelatedTable: hit.OtherTable,
		Kind:         string(hit.Kind),
		Reason:       reason,
		Location:     hit.WKT,
	}
}
