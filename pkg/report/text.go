package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/nsxbet/geoqc/pkg/i18n"
	"github.com/nsxbet/geoqc/pkg/types"
)

func renderText(w io.Writer, r *Report, opts RenderOptions) error {
	p := opts.Printer
	if p == nil {
		p = i18n.English()
	}
	verbosity := opts.Verbosity
	if verbosity == "" {
		verbosity = VerbositySummary
	}

	_, _ = fmt.Fprintf(w, "%s\n", p.T("Quality control report"))
	_, _ = fmt.Fprintf(w, "%s: %s  %s: %s\n", p.T("Run"), r.RunID, p.T("Domain"), r.Domain)
	_, _ = fmt.Fprintf(w, "%s: %s  %s: %s\n", p.T("Started"), r.Start.Format(time.RFC3339), p.T("Finished"), r.End.Format(time.RFC3339))
	if len(r.Parameters) > 0 {
		keys := make([]string, 0, len(r.Parameters))
		for k := range r.Parameters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + r.Parameters[k]
		}
		_, _ = fmt.Fprintf(w, "%s: %s\n", p.T("Parameters"), strings.Join(parts, " "))
	}
	_, _ = fmt.Fprintln(w, p.Sprintf("%d items checked, %d rule outcomes", r.Items, r.Summary.Total))
	_, _ = fmt.Fprintln(w, p.Sprintf("%d pass, %d fail, %d error", r.Summary.Pass, r.Summary.Fail, r.Summary.Error))

	if verbosity == VerbosityNone {
		return nil
	}

	_, _ = fmt.Fprintln(w)
	summaryTable(w, r, p)

	outcomes := r.Offending()
	if verbosity == VerbosityFull {
		outcomes = nil
		for _, g := range r.Groups {
			outcomes = append(outcomes, g.Outcomes...)
		}
	}
	_, _ = fmt.Fprintln(w)
	if len(outcomes) == 0 {
		_, _ = fmt.Fprintln(w, p.T("No offending items."))
		return nil
	}
	_, _ = fmt.Fprintln(w, p.T("Offending items"))
	outcomeTable(w, outcomes, p)

	if verbosity == VerbosityFull {
		for _, o := range outcomes {
			if len(o.Offenders) > 0 {
				_, _ = fmt.Fprintln(w)
				offenderTable(w, o, p, opts.MaxOffenders)
			}
		}
	}
	return nil
}

func summaryTable(w io.Writer, r *Report, p *i18n.Printer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(p.T("Summary"))
	t.AppendHeader(table.Row{p.T("Rule"), p.T("Total"), p.T("Pass"), p.T("Fail"), p.T("Error")})
	for _, g := range r.Groups {
		t.AppendRow(table.Row{g.Rule, g.Counts.Total, g.Counts.Pass, g.Counts.Fail, g.Counts.Error})
	}
	t.AppendFooter(table.Row{p.T("Total"), r.Summary.Total, r.Summary.Pass, r.Summary.Fail, r.Summary.Error})
	t.Render()
}

func outcomeTable(w io.Writer, outcomes []*types.Outcome, p *i18n.Printer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{p.T("Rule"), p.T("Item"), p.T("Verdict"), p.T("Measured"), p.T("Expected"), p.T("Detail")})
	for _, o := range outcomes {
		detail := o.Detail
		if o.Error != "" {
			detail = o.Error
		} else if len(o.Offenders) > 0 {
			detail = p.Sprintf("%d offending features", len(o.Offenders))
		}
		t.AppendRow(table.Row{o.Rule, o.Item, p.Title(p.T(string(o.Verdict))), o.Measured, o.Expected, detail})
	}
	t.Render()
}

func offenderTable(w io.Writer, o *types.Outcome, p *i18n.Printer, limit int) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("%s · %s", o.Rule, o.Item))
	t.AppendHeader(table.Row{p.T("Feature"), p.T("Related"), p.T("Reason"), p.T("Location")})

	offenders := o.Offenders
	if limit > 0 && len(offenders) > limit {
		offenders = offenders[:limit]
	}
	for _, off := range offenders {
		t.AppendRow(table.Row{off.ID, relatedText(off), reasonText(off), off.Location})
	}
	if rest := len(o.Offenders) - len(offenders); rest > 0 {
		t.AppendFooter(table.Row{p.Sprintf("and %d more", rest)})
	}
	t.Render()
}

func relatedText(off types.Offender) string {
	ids := make([]string, len(off.Related))
	for i, id := range off.Related {
		ids[i] = strconv.FormatInt(id, 10)
	}
	s := strings.Join(ids, ",")
	if off.RelatedTable != "" {
		s = off.RelatedTable + ":" + s
	}
	return s
}

func reasonText(off types.Offender) string {
	parts := make([]string, 0, 3)
	if off.Kind != "" {
		parts = append(parts, off.Kind)
	}
	if off.Reason != "" {
		parts = append(parts, off.Reason)
	}
	if off.Count > 0 {
		parts = append(parts, "n="+strconv.Itoa(off.Count))
	}
	return strings.Join(parts, "; ")
}
