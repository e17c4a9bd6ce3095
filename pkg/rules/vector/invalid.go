package vector

import (
	"context"

	"github.com/nsxbet/geoqc/pkg/engine"
	"github.com/nsxbet/geoqc/pkg/types"
)

var _ engine.Checker = (*InvalidChecker)(nil)

func init() {
	engine.Register(types.DomainVector, types.RuleInvalid, &InvalidChecker{})
}

// InvalidChecker reports features whose geometry is not OGC valid.
type InvalidChecker struct{}

func (*InvalidChecker) Check(ctx context.Context, checkCtx engine.Context) (*types.Outcome, error) {
	table, err := checkCtx.Table()
	if err != nil {
		return nil, err
	}
	features, err := checkCtx.Geometry.Invalid(ctx, table)
	if err != nil {
		return nil, err
	}

	offenders := make([]types.Offender, 0, len(features))
	for _, f := range features {
		offenders = append(offenders, types.Offender{ID: f.ID, Reason: f.Reason, Location: f.Location})
	}
	return offendingOutcome(checkCtx, types.RuleInvalid, offenders), nil
}
