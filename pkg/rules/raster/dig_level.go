package raster

import (
	"context"
	"fmt"
	"strings"

	"github.com/nsxbet/geoqc/pkg/engine"
	"github.com/nsxbet/geoqc/pkg/types"
)

var _ engine.Checker = (*DigLevelChecker)(nil)

func init() {
	engine.Register(types.DomainRaster, types.RuleDigLevel, &DigLevelChecker{})
}

// DigLevelChecker checks the bit depth of every band.
type DigLevelChecker struct{}

func (*DigLevelChecker) Check(_ context.Context, checkCtx engine.Context) (*types.Outcome, error) {
	m, err := checkCtx.Raster()
	if err != nil {
		return nil, err
	}

	depths := m.BitDepths()
	if n := checkCtx.MaxBands; n > 0 && n < len(depths) {
		depths = depths[:n]
	}
	dataTypes := m.DataTypes()

	tol := checkCtx.Tolerance
	metrics := make(map[string]float64, len(depths))
	var offending []string
	for i, bits := range depths {
		metrics[bandKey(i+1)] = float64(bits)
		if !tol.Within(float64(bits)) {
			name := ""
			if i < len(dataTypes) {
				name = " (" + dataTypes[i] + ")"
			}
			offending = append(offending, fmt.Sprintf("band %d: %d bits%s", i+1, bits, name))
		}
	}

	o := types.NewOutcome(checkCtx.Item, types.RuleDigLevel, verdictOf(len(depths) > 0 && len(offending) == 0))
	o.Measured = joinInts(depths)
	o.Expected = withinRange(tol)
	o.Metrics = metrics
	switch {
	case len(depths) == 0:
		o.Detail = "no bands"
	case len(offending) > 0:
		o.Detail = strings.Join(offending, "; ")
	}
	return o, nil
}
