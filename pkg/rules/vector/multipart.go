package vector

import (
	"context"

	"github.com/nsxbet/geoqc/pkg/engine"
	"github.com/nsxbet/geoqc/pkg/types"
)

var _ engine.Checker = (*MultipartChecker)(nil)

func init() {
	engine.Register(types.DomainVector, types.RuleMultipart, &MultipartChecker{})
}

// MultipartChecker reports features made of several parts.
type MultipartChecker struct{}

func (*MultipartChecker) Check(ctx context.Context, checkCtx engine.Context) (*types.Outcome, error) {
	table, err := checkCtx.Table()
	if err != nil {
		return nil, err
	}
	features, err := checkCtx.Geometry.Multipart(ctx, table)
	if err != nil {
		return nil, err
	}

	offenders := make([]types.Offender, 0, len(features))
	for _, f := range features {
		offenders = append(offenders, types.Offender{ID: f.ID, Count: f.Parts})
	}
	return offendingOutcome(checkCtx, types.RuleMultipart, offenders), nil
}
