package trends

import (
	"fmt"
	"strings"
)

// InsufficientHistory is shown when no trend can be computed.
const InsufficientHistory = "Insufficient historical data to compute trends yet."

// Highlights lists the notable movements of a report, most recent window
// first. It never calls out flat metrics.
func Highlights(r *Report) []string {
	if r == nil || !r.HasHistory {
		return []string{InsufficientHistory}
	}

	var out []string
	for _, w := range []struct {
		label string
		cmp   Comparison
	}{
		{"this week", r.Weekly},
		{"this month", r.Monthly},
		{"this year", r.Yearly},
	} {
		if s := describe("Conversions", w.cmp.Conversions, w.label); s != "" {
			out = append(out, s)
		}
		if s := describe("Views", w.cmp.Views, w.label); s != "" {
			out = append(out, s)
		}
		if s := describe("Spend", w.cmp.Spend, w.label); s != "" {
			out = append(out, s)
		}
		if s := describeCPA(w.cmp.CPA, w.label); s != "" {
			out = append(out, s)
		}
	}

	if n := len(r.Momentum.Rising) + len(r.Momentum.Cooling) + len(r.Momentum.Stalled); n > 0 {
		out = append(out, fmt.Sprintf("%d rising, %d cooling, %d stalled creators",
			len(r.Momentum.Rising), len(r.Momentum.Cooling), len(r.Momentum.Stalled)))
	}
	if len(out) == 0 {
		out = append(out, "All tracked metrics are flat across week, month and year")
	}
	return out
}

// Summarize joins the weekly highlights and the momentum line into one short
// digest.
func Summarize(r *Report) string {
	if r == nil || !r.HasHistory {
		return InsufficientHistory
	}

	var parts []string
	if s := describe("Conversions", r.Weekly.Conversions, "this week"); s != "" {
		parts = append(parts, s)
	} else {
		parts = append(parts, "Conversions flat this week")
	}
	if s := describeCPA(r.Weekly.CPA, "this week"); s != "" {
		parts = append(parts, s)
	}
	parts = append(parts, fmt.Sprintf("%d rising, %d cooling, %d stalled creators",
		len(r.Momentum.Rising), len(r.Momentum.Cooling), len(r.Momentum.Stalled)))

	return strings.Join(parts, ". ") + "."
}

func describe(metric string, c Change, window string) string {
	switch c.Direction {
	case Up:
		return fmt.Sprintf("%s up %d%% %s", metric, c.Percent, window)
	case Down:
		return fmt.Sprintf("%s down %d%% %s", metric, -c.Percent, window)
	default:
		return ""
	}
}

func describeCPA(c CPAChange, window string) string {
	switch c.Direction {
	case Improving:
		return fmt.Sprintf("CPA improved %d%% %s", -c.Percent, window)
	case Worsening:
		return fmt.Sprintf("CPA worsened %d%% %s", c.Percent, window)
	case New:
		return fmt.Sprintf("First conversions recorded %s", window)
	case Lost:
		return fmt.Sprintf("No conversions %s after converting the period before", window)
	default:
		return ""
	}
}
