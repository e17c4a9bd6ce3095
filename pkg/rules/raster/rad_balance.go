package raster

import (
	"context"
	"fmt"
	"strings"

	"github.com/nsxbet/geoqc/pkg/engine"
	"github.com/nsxbet/geoqc/pkg/types"
)

var _ engine.Checker = (*RadBalanceChecker)(nil)

func init() {
	engine.Register(types.DomainRaster, types.RuleRadBalance, &RadBalanceChecker{})
}

// RadBalanceChecker checks the share of valid pixels falling in the extreme
// bins, averaged over bands. The tolerance is a ceiling on that fraction.
type RadBalanceChecker struct{}

func (*RadBalanceChecker) Check(ctx context.Context, checkCtx engine.Context) (*types.Outcome, error) {
	m, err := checkCtx.Raster()
	if err != nil {
		return nil, err
	}
	stats, err := m.Stats(ctx)
	if err != nil {
		return nil, err
	}

	tol := checkCtx.Tolerance
	metrics := make(map[string]float64, len(stats)+1)
	parts := make([]string, 0, len(stats))
	var sum float64
	var bands int
	for _, s := range stats {
		f := s.ExtremeFraction()
		metrics[bandKey(s.Band)] = f
		parts = append(parts, fmt.Sprintf("band %d: %s (low<=%s %d, high>=%s %d)",
			s.Band, formatPercent(f), formatFloat(s.LowThreshold), s.Low, formatFloat(s.HighThreshold), s.High))
		if s.Valid > 0 {
			sum += f
			bands++
		}
	}

	if bands == 0 {
		o := types.NewOutcome(checkCtx.Item, types.RuleRadBalance, types.VerdictFail)
		o.Expected = atMostRange(tol)
		o.Detail = "no valid pixels"
		return o, nil
	}

	mean := sum / float64(bands)
	metrics["mean"] = mean

	o := types.NewOutcome(checkCtx.Item, types.RuleRadBalance, verdictOf(tol.AtMost(mean)))
	o.Measured = formatPercent(mean)
	o.Expected = atMostRange(tol)
	o.Metrics = metrics
	o.Detail = strings.Join(parts, "; ")
	return o, nil
}
