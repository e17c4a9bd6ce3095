package raster

import (
	"context"
	"strconv"

	"github.com/nsxbet/geoqc/pkg/engine"
	"github.com/nsxbet/geoqc/pkg/types"
)

var _ engine.Checker = (*BandsLenChecker)(nil)

func init() {
	engine.Register(types.DomainRaster, types.RuleBandsLen, &BandsLenChecker{})
}

// BandsLenChecker checks the number of bands.
type BandsLenChecker struct{}

func (*BandsLenChecker) Check(_ context.Context, checkCtx engine.Context) (*types.Outcome, error) {
	m, err := checkCtx.Raster()
	if err != nil {
		return nil, err
	}

	n := m.BandCount()
	o := types.NewOutcome(checkCtx.Item, types.RuleBandsLen, verdictOf(checkCtx.Tolerance.Within(float64(n))))
	o.Measured = strconv.Itoa(n)
	o.Expected = withinRange(checkCtx.Tolerance)
	o.Metrics = map[string]float64{"bands": float64(n)}
	return o, nil
}
