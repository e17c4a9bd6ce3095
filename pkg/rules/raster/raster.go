// Package raster registers the quality rules applied to raster images.
//
// Rules read measurements through engine.RasterMeasurer and compare them
// with the tolerance of the rule; they never touch the file themselves.
package raster

import (
	"strconv"
	"strings"

	"github.com/nsxbet/geoqc/pkg/types"
)

func verdictOf(ok bool) types.Verdict {
	if ok {
		return types.VerdictPass
	}
	return types.VerdictFail
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 4, 64) + "%"
}

// withinRange renders the interval accepted by Tolerance.Within.
func withinRange(t types.Tolerance) string {
	lo, hi := t.Bounds()
	return "[" + formatFloat(lo) + ", " + formatFloat(hi) + "]"
}

// atMostRange renders the ceiling accepted by Tolerance.AtMost.
func atMostRange(t types.Tolerance) string {
	_, hi := t.Bounds()
	return "<= " + formatPercent(hi)
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func bandKey(band int) string {
	return "band_" + strconv.Itoa(band)
}
