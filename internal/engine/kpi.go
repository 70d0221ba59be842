package engine

import (
	"fmt"

	"github.com/roach88/seqcheck/internal/ir"
)

// computeKPIs evaluates kpis against a finished top-level occurrence.
// A KPI whose referenced step never matched is omitted.
//
// With both references the value is the reception time difference in
// milliseconds. With a single reference it is that message's device
// timestamp in milliseconds with one decimal.
func computeKPIs(kpis []ir.KPISpec, occ *Occurrence) []ir.KPIValue {
	var values []ir.KPIValue
	for _, k := range kpis {
		var start, end *ir.Event
		if k.Start > 0 {
			if start = occ.firstMatch(k.Start - 1); start == nil {
				continue
			}
		}
		if k.End > 0 {
			if end = occ.firstMatch(k.End - 1); end == nil {
				continue
			}
		}

		var value string
		switch {
		case start != nil && end != nil:
			value = fmt.Sprintf("%dms", end.TimeMs-start.TimeMs)
		case end != nil:
			value = formatTimestamp(end.TimeStamp)
		case start != nil:
			value = formatTimestamp(start.TimeStamp)
		default:
			continue
		}
		values = append(values, ir.KPIValue{Name: k.Name, Value: value})
	}
	return values
}

// formatTimestamp renders a device timestamp (0.1 ms units) in milliseconds.
func formatTimestamp(ts int64) string {
	sign := ""
	if ts < 0 {
		sign = "-"
	}
	return fmt.Sprintf("%s%d.%dms", sign, abs(ts/10), abs(ts%10))
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
