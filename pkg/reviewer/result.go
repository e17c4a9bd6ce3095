package reviewer

import (
	"fmt"

	"github.com/nsxbet/geoqc/pkg/report"
	"github.com/nsxbet/geoqc/pkg/types"
)

// ReviewResult contains the results of a quality control run.
type ReviewResult struct {
	// Outcomes holds one outcome per (item, rule), ordered by item then rule.
	Outcomes []*types.Outcome

	// Report groups the outcomes by rule and carries the summary.
	Report *report.Report
}

// Summary returns the aggregate counts of the run.
func (r *ReviewResult) Summary() report.Summary {
	return r.Report.Summary
}

// HasOffenses returns true if any rule failed or could not be evaluated.
//
// This is useful for CI/CD pipelines that should fail on offenses:
//
//	if result.HasOffenses() {
//	    os.Exit(1)
//	}
func (r *ReviewResult) HasOffenses() bool {
	return r.Report.HasOffenses()
}

// IsClean returns true if every rule passed on every item.
func (r *ReviewResult) IsClean() bool {
	return !r.HasOffenses()
}

// String returns a human-readable summary of the review results.
//
// Example output:
//
//	Review Results: 10 total (8 pass, 1 fail, 1 error)
func (r *ReviewResult) String() string {
	s := r.Report.Summary
	return fmt.Sprintf("Review Results: %d total (%d pass, %d fail, %d error)", s.Total, s.Pass, s.Fail, s.Error)
}

// FilterByVerdict returns the outcomes with the given verdict.
func (r *ReviewResult) FilterByVerdict(v types.Verdict) []*types.Outcome {
	filtered := make([]*types.Outcome, 0)
	for _, o := range r.Outcomes {
		if o.Verdict == v {
			filtered = append(filtered, o)
		}
	}
	return filtered
}

// FilterByRule returns the outcomes of one rule.
func (r *ReviewResult) FilterByRule(rule types.Rule) []*types.Outcome {
	filtered := make([]*types.Outcome, 0)
	for _, o := range r.Outcomes {
		if o.Rule == rule {
			filtered = append(filtered, o)
		}
	}
	return filtered
}
