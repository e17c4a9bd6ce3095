// Package vector registers the quality rules applied to the spatial tables
// of a PostGIS schema. Every rule passes when its query finds no offending
// feature.
package vector

import (
	"strconv"

	"github.com/nsxbet/geoqc/pkg/engine"
	"github.com/nsxbet/geoqc/pkg/types"
)

// offendingOutcome builds the outcome of a rule that expects no offenders.
func offendingOutcome(checkCtx engine.Context, rule types.Rule, offenders []types.Offender) *types.Outcome {
	verdict := types.VerdictPass
	if len(offenders) > 0 {
		verdict = types.VerdictFail
	}
	o := types.NewOutcome(checkCtx.Item, rule, verdict)
	o.Measured = strconv.Itoa(len(offenders))
	o.Expected = "0"
	o.Metrics = map[string]float64{"offenders": float64(len(offenders))}
	o.Offenders = offenders
	return o
}
