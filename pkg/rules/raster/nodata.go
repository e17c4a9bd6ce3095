package raster

import (
	"context"

	"github.com/nsxbet/geoqc/pkg/engine"
	"github.com/nsxbet/geoqc/pkg/types"
)

var _ engine.Checker = (*NoDataChecker)(nil)

func init() {
	engine.Register(types.DomainRaster, types.RuleNoData, &NoDataChecker{})
}

// NoDataChecker checks the share of NODATA pixels over all bands. A raster
// without a declared NODATA value only counts NaN samples.
type NoDataChecker struct{}

func (*NoDataChecker) Check(ctx context.Context, checkCtx engine.Context) (*types.Outcome, error) {
	m, err := checkCtx.Raster()
	if err != nil {
		return nil, err
	}
	stats, err := m.Stats(ctx)
	if err != nil {
		return nil, err
	}

	var noData, total int64
	metrics := make(map[string]float64, len(stats)+1)
	for _, s := range stats {
		noData += s.NoData
		total += s.Total
		metrics[bandKey(s.Band)] = s.NoDataFraction()
	}
	var fraction float64
	if total > 0 {
		fraction = float64(noData) / float64(total)
	}
	metrics["fraction"] = fraction

	tol := checkCtx.Tolerance
	o := types.NewOutcome(checkCtx.Item, types.RuleNoData, verdictOf(tol.AtMost(fraction)))
	o.Measured = formatPercent(fraction)
	o.Expected = atMostRange(tol)
	o.Metrics = metrics
	if value, ok := m.NoData(); ok {
		o.Detail = "nodata value " + formatFloat(value)
	} else {
		o.Detail = "no nodata value declared"
	}
	return o, nil
}
