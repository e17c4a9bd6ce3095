// Package report aggregates rule outcomes into a run report and renders it.
package report

import (
	"sort"
	"sync"
	"time"

	"github.com/nsxbet/geoqc/pkg/types"
)

// Counts tallies outcomes by verdict.
type Counts struct {
	Total int `json:"total" yaml:"total"`
	Pass  int `json:"pass" yaml:"pass"`
	Fail  int `json:"fail" yaml:"fail"`
	Error int `json:"error" yaml:"error"`
}

func (c *Counts) add(v types.Verdict) {
	c.Total++
	switch v {
	case types.VerdictPass:
		c.Pass++
	case types.VerdictFail:
		c.Fail++
	case types.VerdictError:
		c.Error++
	}
}

// Summary provides aggregate statistics about a run.
type Summary struct {
	Counts  `json:",inline" yaml:",inline"`
	PerRule map[types.Rule]Counts `json:"per_rule" yaml:"per_rule"`
}

// Group holds the outcomes of one rule.
type Group struct {
	Rule     types.Rule       `json:"rule" yaml:"rule"`
	Counts   Counts           `json:"counts" yaml:"counts"`
	Outcomes []*types.Outcome `json:"outcomes" yaml:"outcomes"`
}

// Report is the result of a quality control run.
type Report struct {
	RunID      string            `json:"run_id" yaml:"run_id"`
	Domain     types.Domain      `json:"domain" yaml:"domain"`
	Parameters map[string]string `json:"parameters" yaml:"parameters"`
	Items      int               `json:"items" yaml:"items"`
	Groups     []Group           `json:"groups" yaml:"groups"`
	Summary    Summary           `json:"summary" yaml:"summary"`
	Start      time.Time         `json:"start" yaml:"start"`
	End        time.Time         `json:"end" yaml:"end"`
}

// HasOffenses reports whether any outcome failed or could not be evaluated.
func (r *Report) HasOffenses() bool {
	return r.Summary.Fail > 0 || r.Summary.Error > 0
}

// Offending returns the outcomes needing attention, in report order.
func (r *Report) Offending() []*types.Outcome {
	var out []*types.Outcome
	for _, g := range r.Groups {
		for _, o := range g.Outcomes {
			if o.Offending() {
				out = append(out, o)
			}
		}
	}
	return out
}

// Aggregator accumulates outcomes. Add is safe for concurrent use.
type Aggregator struct {
	runID  string
	domain types.Domain
	params map[string]string
	now    func() time.Time

	mu       sync.Mutex
	start    time.Time
	items    map[string]int
	outcomes []*types.Outcome
}

// NewAggregator starts a report for a run.
func NewAggregator(runID string, domain types.Domain, params map[string]string) *Aggregator {
	copied := make(map[string]string, len(params))
	for k, v := range params {
		copied[k] = v
	}
	a := &Aggregator{
		runID:  runID,
		domain: domain,
		params: copied,
		now:    time.Now,
		items:  make(map[string]int),
	}
	a.start = a.now()
	return a
}

// SetItems records the enumeration order of the items so that the report
// lists them in that order whatever order outcomes arrive in.
func (a *Aggregator) SetItems(items []types.Item) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, item := range items {
		if _, ok := a.items[item.ID()]; !ok {
			a.items[item.ID()] = len(a.items)
		}
	}
}

// Add records an outcome.
func (a *Aggregator) Add(o *types.Outcome) {
	if o == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.items[o.Item]; !ok {
		a.items[o.Item] = len(a.items)
	}
	a.outcomes = append(a.outcomes, o)
}

// Report groups the outcomes by rule in canonical order and computes the
// summary. Within a group outcomes follow item order.
func (a *Aggregator) Report() *Report {
	a.mu.Lock()
	outcomes := append([]*types.Outcome(nil), a.outcomes...)
	order := make(map[string]int, len(a.items))
	for k, v := range a.items {
		order[k] = v
	}
	a.mu.Unlock()

	sort.SliceStable(outcomes, func(i, j int) bool {
		ri, rj := outcomes[i].Rule.Order(), outcomes[j].Rule.Order()
		if ri != rj {
			return ri < rj
		}
		return order[outcomes[i].Item] < order[outcomes[j].Item]
	})

	r := &Report{
		RunID:      a.runID,
		Domain:     a.domain,
		Parameters: a.params,
		Items:      len(order),
		Summary:    Summary{PerRule: make(map[types.Rule]Counts)},
		Start:      a.start,
		End:        a.now(),
	}
	for _, o := range outcomes {
		if n := len(r.Groups); n == 0 || r.Groups[n-1].Rule != o.Rule {
			r.Groups = append(r.Groups, Group{Rule: o.Rule})
		}
		g := &r.Groups[len(r.Groups)-1]
		g.Outcomes = append(g.Outcomes, o)
		g.Counts.add(o.Verdict)
		r.Summary.add(o.Verdict)
	}
	for _, g := range r.Groups {
		r.Summary.PerRule[g.Rule] = g.Counts
	}
	return r
}
