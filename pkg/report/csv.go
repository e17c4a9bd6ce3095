package report

import (
	"encoding/csv"
	"io"
	"strconv"
)

var csvHeader = []string{
	"run_id", "domain", "rule", "item", "verdict", "measured", "expected",
	"feature_id", "related_table", "related_ids", "kind", "reason", "location", "detail",
}

// renderCSV writes one record per offending feature, or one per offending
// outcome when it has no feature detail.
func renderCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, o := range r.Offending() {
		detail := o.Detail
		if o.Error != "" {
			detail = o.Error
		}
		base := []string{r.RunID, string(o.Domain), string(o.Rule), o.Item, string(o.Verdict), o.Measured, o.Expected}
		if len(o.Offenders) == 0 {
			if err := cw.Write(append(base, "", "", "", "", "", "", detail)); err != nil {
				return err
			}
			continue
		}
		for _, off := range o.Offenders {
			record := append(append([]string(nil), base...),
				strconv.FormatInt(off.ID, 10), off.RelatedTable, joinIDs(off.Related),
				off.Kind, off.Reason, off.Location, detail)
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func joinIDs(ids []int64) string {
	b := make([]byte, 0, len(ids)*4)
	for i, id := range ids {
		if i > 0 {
			b = append(b, ' ')
		}
		b = strconv.AppendInt(b, id, 10)
	}
	return string(b)
}
