// Package stats holds the in-process percentile engine used by the memory
// benchmark store and by tests of the SQL-backed stores.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/radiusdt/creatorpulse/internal/models"
)

// Percentile returns the p-th quantile (0 <= p <= 1) of sorted values using
// linear interpolation between closest ranks, matching percentile_cont.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 || p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	rank := p * float64(n-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	weight := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*weight
}

// column collects the finite non-null values of one metric, sorted.
func column(rows []models.Contribution, pick func(models.Contribution) *float64) []float64 {
	values := make([]float64, 0, len(rows))
	for _, r := range rows {
		v := pick(r)
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			continue
		}
		values = append(values, *v)
	}
	sort.Float64s(values)
	return values
}

func quantile(values []float64, p float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	q := Percentile(values, p)
	return &q
}

// ComputeSegment summarizes contributions into a segment row. SampleSize
// counts every row; each percentile ignores rows where its metric is null.
// The caller decides whether the sample is large enough to persist.
func ComputeSegment(name string, rows []models.Contribution, now time.Time) *models.Segment {
	cpa := column(rows, func(c models.Contribution) *float64 { return c.CPA })

	return &models.Segment{
		Name:                   name,
		SampleSize:             len(rows),
		CPAP25:                 quantile(cpa, 0.25),
		CPAP50:                 quantile(cpa, 0.5),
		CPAP75:                 quantile(cpa, 0.75),
		CPCP50:                 quantile(column(rows, func(c models.Contribution) *float64 { return c.CPC }), 0.5),
		CPMP50:                 quantile(column(rows, func(c models.Contribution) *float64 { return c.CPM }), 0.5),
		ConversionRateP50:      quantile(column(rows, func(c models.Contribution) *float64 { return c.ConversionRate }), 0.5),
		ContentDeliveryRateP50: quantile(column(rows, func(c models.Contribution) *float64 { return c.ContentDeliveryRate }), 0.5),
		ViewsPerDollarP50:      quantile(column(rows, func(c models.Contribution) *float64 { return c.ViewsPerDollar }), 0.5),
		UpdatedAt:              now,
	}
}
