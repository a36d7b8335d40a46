package trends

import "time"

const day = 24 * time.Hour

// Window is a rolling comparison period. The current span is [now-N, now],
// the previous span is [now-2N, now-N). Windows are never calendar-aligned.
type Window struct {
	Name   string
	Length time.Duration
}

var (
	Week  = Window{Name: "week", Length: 7 * day}
	Month = Window{Name: "month", Length: 30 * day}
	Year  = Window{Name: "year", Length: 365 * day}
)

// InCurrent reports whether t falls in [now-N, now].
func (w Window) InCurrent(t, now time.Time) bool {
	return !t.Before(now.Add(-w.Length)) && !t.After(now)
}

// InPrevious reports whether t falls in [now-2N, now-N).
func (w Window) InPrevious(t, now time.Time) bool {
	return !t.Before(now.Add(-2*w.Length)) && t.Before(now.Add(-w.Length))
}

// totals accumulates one window's sums.
type totals struct {
	conversions float64
	clicks      float64
	spend       float64
	views       float64
}

// sumWindows splits the series into the window's current and previous sums.
func (w Window) sumWindows(conv []convPoint, views []viewPoint, now time.Time) (cur, prev totals) {
	for _, p := range conv {
		switch {
		case w.InCurrent(p.day, now):
			cur.conversions += p.conversions
			cur.clicks += p.clicks
			cur.spend += p.spend
		case w.InPrevious(p.day, now):
			prev.conversions += p.conversions
			prev.clicks += p.clicks
			prev.spend += p.spend
		}
	}
	for _, p := range views {
		switch {
		case w.InCurrent(p.day, now):
			cur.views += p.views
		case w.InPrevious(p.day, now):
			prev.views += p.views
		}
	}
	return cur, prev
}

type convPoint struct {
	day         time.Time
	conversions float64
	clicks      float64
	spend       float64
}

type viewPoint struct {
	day   time.Time
	views float64
}
