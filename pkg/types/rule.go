package types

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// Domain identifies the kind of deliverable a rule applies to.
type Domain string

const (
	DomainRaster Domain = "raster"
	DomainVector Domain = "vector"
)

// Rule is the name of a quality control.
type Rule string

const (
	// RulePixelSize checks the ground sample distance of a raster.
	RulePixelSize Rule = "pixel_size"
	// RuleDigLevel checks the bit depth of every raster band.
	RuleDigLevel Rule = "dig_level"
	// RuleBandsLen checks the number of raster bands.
	RuleBandsLen Rule = "bands_len"
	// RuleRadBalance checks the share of saturated or underexposed pixels.
	RuleRadBalance Rule = "rad_balance"
	// RuleNoData checks the share of NODATA pixels.
	RuleNoData Rule = "nodata"

	// RuleInvalid reports features whose geometry is not well formed.
	RuleInvalid Rule = "invalid"
	// RuleDuplicate reports features with spatially identical geometries.
	RuleDuplicate Rule = "duplicate"
	// RuleMultipart reports features made of more than one part.
	RuleMultipart Rule = "multipart"
	// RuleIntersect reports non admissible overlaps with other tables.
	RuleIntersect Rule = "intersect"
	// RuleNull reports features without geometry.
	RuleNull Rule = "null"

	// RuleAll applies every rule of the item's domain.
	RuleAll Rule = "aall"
)

var (
	rasterRules = []Rule{RulePixelSize, RuleDigLevel, RuleBandsLen, RuleRadBalance, RuleNoData}
	vectorRules = []Rule{RuleInvalid, RuleDuplicate, RuleMultipart, RuleIntersect, RuleNull}
)

// ParseRule converts a rule name into a Rule. "all" is accepted as an alias of "aall".
func ParseRule(s string) (Rule, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "all" {
		return RuleAll, nil
	}
	r := Rule(name)
	if r == RuleAll || r.Domain() != "" {
		return r, nil
	}
	return "", errors.Errorf("unknown rule: %q", s)
}

// Domain returns the domain of the rule, or "" for RuleAll and unknown names.
func (r Rule) Domain() Domain {
	for _, v := range rasterRules {
		if v == r {
			return DomainRaster
		}
	}
	for _, v := range vectorRules {
		if v == r {
			return DomainVector
		}
	}
	return ""
}

// Order is the position of the rule in its domain's canonical order.
// Unknown rules sort last.
func (r Rule) Order() int {
	for i, v := range RulesFor(r.Domain()) {
		if v == r {
			return i
		}
	}
	return len(rasterRules) + len(vectorRules)
}

func (r Rule) String() string {
	return string(r)
}

// UnmarshalYAML implements yaml.Unmarshaler for Rule
func (r *Rule) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseRule(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// UnmarshalJSON implements json.Unmarshaler for Rule
func (r *Rule) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRule(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// RulesFor returns the rules of a domain in canonical order.
func RulesFor(d Domain) []Rule {
	switch d {
	case DomainRaster:
		return append([]Rule(nil), rasterRules...)
	case DomainVector:
		return append([]Rule(nil), vectorRules...)
	default:
		return nil
	}
}

// Expand resolves RuleAll and drops rules that do not belong to the domain.
// The result is deduplicated and in canonical order.
func Expand(rules []Rule, d Domain) []Rule {
	want := make(map[Rule]bool, len(rules))
	for _, r := range rules {
		if r == RuleAll {
			for _, dr := range RulesFor(d) {
				want[dr] = true
			}
			continue
		}
		if r.Domain() == d {
			want[r] = true
		}
	}

	var expanded []Rule
	for _, r := range RulesFor(d) {
		if want[r] {
			expanded = append(expanded, r)
		}
	}
	return expanded
}
