package types

import (
	"math"

	"github.com/pkg/errors"
)

// boundarySlack absorbs binary floating point representation error so that a
// measurement printed exactly on conform ± deviation is treated as inside.
const boundarySlack = 1e-9

// Tolerance is the conformance target of a rule and the allowed deviation.
// Both bounds are inclusive.
type Tolerance struct {
	Conform   float64 `json:"conform" yaml:"conform" mapstructure:"conform"`
	Deviation float64 `json:"deviation" yaml:"deviation" mapstructure:"deviation"`
}

// Within reports whether |v - Conform| <= Deviation.
func (t Tolerance) Within(v float64) bool {
	if math.IsNaN(v) {
		return false
	}
	return math.Abs(v-t.Conform) <= t.Deviation+boundarySlack
}

// AtMost reports whether v <= Conform + Deviation. It is used by ceiling
// rules where the target is a maximum share of pixels.
func (t Tolerance) AtMost(v float64) bool {
	if math.IsNaN(v) {
		return false
	}
	return v <= t.Conform+t.Deviation+boundarySlack
}

// Bounds returns the inclusive interval accepted by Within.
func (t Tolerance) Bounds() (lo, hi float64) {
	return t.Conform - t.Deviation, t.Conform + t.Deviation
}

// Validate rejects negative or non finite values.
func (t Tolerance) Validate() error {
	if math.IsNaN(t.Conform) || math.IsInf(t.Conform, 0) {
		return errors.Errorf("conform value must be finite, got %v", t.Conform)
	}
	if math.IsNaN(t.Deviation) || math.IsInf(t.Deviation, 0) || t.Deviation < 0 {
		return errors.Errorf("deviation must be a finite value >= 0, got %v", t.Deviation)
	}
	return nil
}
