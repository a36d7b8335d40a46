package trends

import (
	"sort"
	"time"

	"github.com/radiusdt/creatorpulse/internal/models"
)

// Bucket is a creator's momentum classification.
type Bucket string

const (
	Rising  Bucket = "rising"
	Cooling Bucket = "cooling"
	Stalled Bucket = "stalled"
	None    Bucket = ""
)

// Momentum thresholds.
const (
	RisingPercent     = 20
	CoolingPercent    = -30
	StalledAfterDays  = 7
	MomentumBucketCap = 5
	CreatorWindow     = 30 * day
)

// Activity is one creator's conversion signal over the trailing weeks.
type Activity struct {
	Name                string
	ThisWeek            int64
	LastWeek            int64
	DaysSinceConversion int
	Change              Change
}

// Classify assigns a creator to at most one bucket, checking rising, then
// cooling, then stalled.
func Classify(a Activity) Bucket {
	switch {
	case a.Change.Percent > RisingPercent && a.ThisWeek > 0:
		return Rising
	case a.Change.Percent < CoolingPercent && a.LastWeek > 0:
		return Cooling
	case a.DaysSinceConversion > StalledAfterDays && a.LastWeek > 0:
		return Stalled
	default:
		return None
	}
}

// MomentumEntry describes a rising or cooling creator.
type MomentumEntry struct {
	Name     string `json:"name"`
	ThisWeek int64  `json:"this_week"`
	LastWeek int64  `json:"last_week"`
	Change   int    `json:"change"`
}

// StalledEntry describes a creator whose conversions stopped.
type StalledEntry struct {
	Name                string `json:"name"`
	DaysSinceConversion int    `json:"days_since_conversion"`
	LastWeek            int64  `json:"last_week"`
}

// Momentum is the per-creator report. Each creator appears in at most one
// list; each list holds at most MomentumBucketCap entries.
type Momentum struct {
	Rising  []MomentumEntry `json:"rising"`
	Cooling []MomentumEntry `json:"cooling"`
	Stalled []StalledEntry  `json:"stalled"`
}

// Activities folds creator-day rows from the trailing 30 days into one
// Activity per creator, ordered by name.
func Activities(days []models.CreatorDay, now time.Time) []Activity {
	type acc struct {
		thisWeek, lastWeek int64
		lastConversion     time.Time
	}

	byCreator := make(map[string]*acc)
	cutoff := now.Add(-CreatorWindow)

	for _, d := range days {
		if d.Day.Before(cutoff) || d.Day.After(now) || d.Creator == "" {
			continue
		}
		a, ok := byCreator[d.Creator]
		if !ok {
			a = &acc{}
			byCreator[d.Creator] = a
		}
		conv := d.Conversions
		if conv < 0 {
			conv = 0
		}
		switch {
		case Week.InCurrent(d.Day, now):
			a.thisWeek += conv
		case Week.InPrevious(d.Day, now):
			a.lastWeek += conv
		}
		if conv > 0 && d.Day.After(a.lastConversion) {
			a.lastConversion = d.Day
		}
	}

	out := make([]Activity, 0, len(byCreator))
	for name, a := range byCreator {
		since := int(CreatorWindow / day)
		if !a.lastConversion.IsZero() {
			since = int(now.Sub(a.lastConversion) / day)
		}
		out = append(out, Activity{
			Name:                name,
			ThisWeek:            a.thisWeek,
			LastWeek:            a.lastWeek,
			DaysSinceConversion: since,
			Change:              Delta(float64(a.thisWeek), float64(a.lastWeek)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ComputeMomentum classifies every creator active in the trailing 30 days.
func ComputeMomentum(days []models.CreatorDay, now time.Time) Momentum {
	m := Momentum{
		Rising:  []MomentumEntry{},
		Cooling: []MomentumEntry{},
		Stalled: []StalledEntry{},
	}

	for _, a := range Activities(days, now) {
		switch Classify(a) {
		case Rising:
			m.Rising = append(m.Rising, entry(a))
		case Cooling:
			m.Cooling = append(m.Cooling, entry(a))
		case Stalled:
			m.Stalled = append(m.Stalled, StalledEntry{
				Name:                a.Name,
				DaysSinceConversion: a.DaysSinceConversion,
				LastWeek:            a.LastWeek,
			})
		}
	}

	sort.SliceStable(m.Rising, func(i, j int) bool { return m.Rising[i].Change > m.Rising[j].Change })
	sort.SliceStable(m.Cooling, func(i, j int) bool { return m.Cooling[i].Change < m.Cooling[j].Change })
	sort.SliceStable(m.Stalled, func(i, j int) bool {
		return m.Stalled[i].DaysSinceConversion > m.Stalled[j].DaysSinceConversion
	})

	if len(m.Rising) > MomentumBucketCap {
		m.Rising = m.Rising[:MomentumBucketCap]
	}
	if len(m.Cooling) > MomentumBucketCap {
		m.Cooling = m.Cooling[:MomentumBucketCap]
	}
	if len(m.Stalled) > MomentumBucketCap {
		m.Stalled = m.Stalled[:MomentumBucketCap]
	}
	return m
}

func entry(a Activity) MomentumEntry {
	return MomentumEntry{
		Name:     a.Name,
		ThisWeek: a.ThisWeek,
		LastWeek: a.LastWeek,
		Change:   a.Change.Percent,
	}
}
