package vector

import (
	"context"

	"github.com/nsxbet/geoqc/pkg/engine"
	"github.com/nsxbet/geoqc/pkg/types"
)

var _ engine.Checker = (*DuplicateChecker)(nil)

func init() {
	engine.Register(types.DomainVector, types.RuleDuplicate, &DuplicateChecker{})
}

// DuplicateChecker reports groups of features with equal geometries. Each
// group is one offender keyed by its smallest id.
type DuplicateChecker struct{}

func (*DuplicateChecker) Check(ctx context.Context, checkCtx engine.Context) (*types.Outcome, error) {
	table, err := checkCtx.Table()
	if err != nil {
		return nil, err
	}
	groups, err := checkCtx.Geometry.Duplicates(ctx, table)
	if err != nil {
		return nil, err
	}

	offenders := make([]types.Offender, 0, len(groups))
	for _, g := range groups {
		if len(g) < 2 {
			continue
		}
		offenders = append(offenders, types.Offender{
			ID:      g[0],
			Related: append([]int64(nil), g[1:]...),
			Count:   len(g),
		})
	}
	return offendingOutcome(checkCtx, types.RuleDuplicate, offenders), nil
}
