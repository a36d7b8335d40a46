package models

import "time"

// DailyConversions is one day of tenant-wide conversion activity.
type DailyConversions struct {
	Day         time.Time `json:"day"`
	Conversions int64     `json:"conversions"`
	Clicks      int64     `json:"clicks"`
	Cost        float64   `json:"cost"`
}

// DailyViews is one day of tenant-wide content reach.
type DailyViews struct {
	Day   time.Time `json:"day"`
	Views int64     `json:"views"`
	Likes int64     `json:"likes"`
}

// CreatorDay is one creator's activity on one day.
type CreatorDay struct {
	Creator     string    `json:"creator"`
	Day         time.Time `json:"day"`
	Conversions int64     `json:"conversions"`
	Clicks      int64     `json:"clicks"`
}

// History is the time series a tenant's trend report is computed from.
// CreatorDays only covers the trailing 30 days.
type History struct {
	Conversions []DailyConversions `json:"conversions"`
	Views       []DailyViews       `json:"views"`
	CreatorDays []CreatorDay       `json:"creator_days"`
}

// Empty reports whether there is nothing to compute trends from.
func (h *History) Empty() bool {
	return h == nil || (len(h.Conversions) == 0 && len(h.Views) == 0 && len(h.CreatorDays) == 0)
}
