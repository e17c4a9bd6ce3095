package vector

import (
	"context"

	"github.com/nsxbet/geoqc/pkg/engine"
	"github.com/nsxbet/geoqc/pkg/types"
)

var _ engine.Checker = (*NullChecker)(nil)

func init() {
	engine.Register(types.DomainVector, types.RuleNull, &NullChecker{})
}

// NullChecker reports features without geometry.
type NullChecker struct{}

func (*NullChecker) Check(ctx context.Context, checkCtx engine.Context) (*types.Outcome, error) {
	table, err := checkCtx.Table()
	if err != nil {
		return nil, err
	}
	ids, err := checkCtx.Geometry.Null(ctx, table)
	if err != nil {
		return nil, err
	}

	offenders := make([]types.Offender, 0, len(ids))
	for _, id := range ids {
		offenders = append(offenders, types.Offender{ID: id})
	}
	return offendingOutcome(checkCtx, types.RuleNull, offenders), nil
}
