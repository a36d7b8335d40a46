package briefing

import (
	"fmt"
	"strings"

	"github.com/radiusdt/creatorpulse/internal/scoring"
	"github.com/radiusdt/creatorpulse/internal/trends"
)

// BuildContext renders the structured data as the plain-text block embedded
// in every prompt.
func BuildContext(in Input) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Health score: %d/100\n", in.Score.Score)
	if len(in.Score.Issues) > 0 {
		sb.WriteString("Issues:\n")
		for _, issue := range in.Score.Issues {
			fmt.Fprintf(&sb, "- %s\n", issue)
		}
	}

	cmp := in.Score.BenchmarkComparison
	source := cmp.Segment
	if cmp.UsingDefaults {
		source = "industry defaults"
	}
	fmt.Fprintf(&sb, "Benchmark: %s (sample %d)\n", source, cmp.SampleSize)
	fmt.Fprintf(&sb, "CPA: %s vs median $%.2f (%s)\n", money(cmp.CPA), cmp.CPABenchmark, cmp.CPAStatus)
	fmt.Fprintf(&sb, "Content delivery: %s vs median %.0f%%\n", percent(cmp.ContentDeliveryRate), cmp.ContentDeliveryBenchmark)
	fmt.Fprintf(&sb, "Views per dollar: %s vs median %.0f\n", number(cmp.ViewsPerDollar), cmp.ViewsPerDollarBenchmark)

	if in.Report != nil && in.Report.HasHistory {
		sb.WriteString("Trends:\n")
		for _, h := range in.Report.Highlights {
			fmt.Fprintf(&sb, "- %s\n", h)
		}
		writeMomentum(&sb, in.Report.Momentum)
	} else {
		fmt.Fprintf(&sb, "Trends: %s\n", trends.InsufficientHistory)
	}

	if len(in.Actions) > 0 {
		sb.WriteString("Recommended actions:\n")
		sb.WriteString(scoring.Describe(in.Actions))
	}
	return sb.String()
}

func writeMomentum(sb *strings.Builder, m trends.Momentum) {
	for _, e := range m.Rising {
		fmt.Fprintf(sb, "- Rising: %s (%d this week, %d last week, %+d%%)\n", e.Name, e.ThisWeek, e.LastWeek, e.Change)
	}
	for _, e := range m.Cooling {
		fmt.Fprintf(sb, "- Cooling: %s (%d this week, %d last week, %+d%%)\n", e.Name, e.ThisWeek, e.LastWeek, e.Change)
	}
	for _, e := range m.Stalled {
		fmt.Fprintf(sb, "- Stalled: %s (%d days since last conversion)\n", e.Name, e.DaysSinceConversion)
	}
}

// FallbackBriefing is the deterministic briefing served when generation is
// unavailable.
func FallbackBriefing(in Input) string {
	parts := []string{fmt.Sprintf("Your health score is %d/100.", in.Score.Score)}

	switch len(in.Score.Issues) {
	case 0:
		parts = append(parts, "No issues were flagged.")
	case 1:
		parts = append(parts, "Main issue: "+in.Score.Issues[0]+".")
	default:
		parts = append(parts, fmt.Sprintf("Main issue: %s (plus %d more).", in.Score.Issues[0], len(in.Score.Issues)-1))
	}

	if in.Report != nil && in.Report.HasHistory {
		parts = append(parts, in.Report.Summary)
	} else {
		parts = append(parts, trends.InsufficientHistory)
	}

	if len(in.Actions) > 0 {
		parts = append(parts, "Next step: "+in.Actions[0].Title+".")
	}
	return strings.Join(parts, " ")
}

// FallbackAnswer is served for questions when generation is unavailable.
func FallbackAnswer(in Input) string {
	return "A tailored answer is not available right now. Here is the current summary: " + FallbackBriefing(in)
}

func money(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("$%.2f", *v)
}

func percent(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.0f%%", *v)
}

func number(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.0f", *v)
}
