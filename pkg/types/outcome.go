package types

// Verdict is the result of applying one rule to one item.
type Verdict string

const (
	// VerdictPass means the item complies with the rule.
	VerdictPass Verdict = "pass"
	// VerdictFail means the rule was evaluated and violated.
	VerdictFail Verdict = "fail"
	// VerdictError means the rule could not be evaluated.
	VerdictError Verdict = "error"
)

// Offender is a single violation found inside an item, usually a feature.
type Offender struct {
	ID int64 `json:"id" yaml:"id"`
	// Related holds the other members of a duplicate group, or the id of the
	// feature in RelatedTable for intersections.
	Related      []int64 `json:"related,omitempty" yaml:"related,omitempty"`
	RelatedTable string  `json:"related_table,omitempty" yaml:"related_table,omitempty"`
	// Kind classifies the violation, e.g. the dimension of an intersection.
	Kind     string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Reason   string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Location string `json:"location,omitempty" yaml:"location,omitempty"`
	Count    int    `json:"count,omitempty" yaml:"count,omitempty"`
}

// Outcome is the verdict of one rule over one item. Outcomes are created once
// and never mutated.
type Outcome struct {
	Item    string  `json:"item" yaml:"item"`
	Domain  Domain  `json:"domain" yaml:"domain"`
	Rule    Rule    `json:"rule" yaml:"rule"`
	Verdict Verdict `json:"verdict" yaml:"verdict"`

	// Measured and Expected are human readable renderings of the compared values.
	Measured string `json:"measured,omitempty" yaml:"measured,omitempty"`
	Expected string `json:"expected,omitempty" yaml:"expected,omitempty"`
	// Metrics carries the raw numbers behind Measured for machine consumers.
	Metrics map[string]float64 `json:"metrics,omitempty" yaml:"metrics,omitempty"`

	Offenders []Offender `json:"offenders,omitempty" yaml:"offenders,omitempty"`
	Detail    string     `json:"detail,omitempty" yaml:"detail,omitempty"`
	Error     string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewOutcome starts an outcome for the item and rule with the given verdict.
func NewOutcome(item Item, rule Rule, verdict Verdict) *Outcome {
	return &Outcome{
		Item:    item.ID(),
		Domain:  item.Domain(),
		Rule:    rule,
		Verdict: verdict,
	}
}

// NewErrorOutcome records that the rule could not be evaluated on the item.
func NewErrorOutcome(item Item, rule Rule, err error) *Outcome {
	o := NewOutcome(item, rule, VerdictError)
	if err != nil {
		o.Error = err.Error()
	}
	return o
}

// Offending reports whether the outcome needs operator attention.
func (o *Outcome) Offending() bool {
	return o.Verdict != VerdictPass
}
