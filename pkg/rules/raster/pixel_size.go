package raster

import (
	"context"

	"github.com/nsxbet/geoqc/pkg/engine"
	"github.com/nsxbet/geoqc/pkg/types"
)

var _ engine.Checker = (*PixelSizeChecker)(nil)

func init() {
	engine.Register(types.DomainRaster, types.RulePixelSize, &PixelSizeChecker{})
}

// PixelSizeChecker checks the ground size of a pixel along both axes.
type PixelSizeChecker struct{}

func (*PixelSizeChecker) Check(_ context.Context, checkCtx engine.Context) (*types.Outcome, error) {
	m, err := checkCtx.Raster()
	if err != nil {
		return nil, err
	}

	x, y := m.PixelSize()
	tol := checkCtx.Tolerance
	ok := x > 0 && y > 0 && tol.Within(x) && tol.Within(y)

	o := types.NewOutcome(checkCtx.Item, types.RulePixelSize, verdictOf(ok))
	o.Measured = formatFloat(x) + " x " + formatFloat(y)
	o.Expected = withinRange(tol)
	o.Metrics = map[string]float64{"x": x, "y": y}
	if x == 0 || y == 0 {
		o.Detail = "zero pixel size"
	}
	return o, nil
}
