package models

import "time"

// Contribution is one anonymized, noised sample in the shared benchmark pool.
// Rows are append-only and carry no tenant identifier.
type Contribution struct {
	ID                  string    `json:"id"`
	Platform            Platform  `json:"platform"`
	PriceTier           PriceTier `json:"price_tier"`
	CPA                 *float64  `json:"cpa"`
	CPC                 *float64  `json:"cpc"`
	CPM                 *float64  `json:"cpm"`
	ConversionRate      *float64  `json:"conversion_rate"`
	ContentDeliveryRate *float64  `json:"content_delivery_rate"`
	ViewsPerDollar      *float64  `json:"views_per_dollar"`
	RecordedAt          time.Time `json:"recorded_at"`
}

// Segment is a computed benchmark row keyed by its unique segment name.
type Segment struct {
	Name                   string    `json:"segment"`
	SampleSize             int       `json:"sample_size"`
	CPAP25                 *float64  `json:"cpa_p25"`
	CPAP50                 *float64  `json:"cpa_p50"`
	CPAP75                 *float64  `json:"cpa_p75"`
	CPCP50                 *float64  `json:"cpc_p50"`
	CPMP50                 *float64  `json:"cpm_p50"`
	ConversionRateP50      *float64  `json:"conversion_rate_p50"`
	ContentDeliveryRateP50 *float64  `json:"content_delivery_rate_p50"`
	ViewsPerDollarP50      *float64  `json:"views_per_dollar_p50"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// Benchmarks is the read-only comparison baseline handed to scoring. Every
// field is populated: values missing from the resolved segment are filled from
// DefaultBenchmarks.
type Benchmarks struct {
	Segment                string  `json:"segment"`
	SampleSize             int     `json:"sample_size"`
	CPAP25                 float64 `json:"cpa_p25"`
	CPAP50                 float64 `json:"cpa_p50"`
	CPAP75                 float64 `json:"cpa_p75"`
	CPCP50                 float64 `json:"cpc_p50"`
	CPMP50                 float64 `json:"cpm_p50"`
	ConversionRateP50      float64 `json:"conversion_rate_p50"`
	ContentDeliveryRateP50 float64 `json:"content_delivery_rate_p50"`
	ViewsPerDollarP50      float64 `json:"views_per_dollar_p50"`
}

// DefaultSegmentName marks the static fallback baseline.
const DefaultSegmentName = "default"

// DefaultBenchmarks is the static baseline used when no segment qualifies.
// ContentDeliveryRateP50 is a percentage (0-100); ConversionRateP50 is a
// fraction of clicks.
func DefaultBenchmarks() Benchmarks {
	return Benchmarks{
		Segment:                DefaultSegmentName,
		SampleSize:             0,
		CPAP25:                 15,
		CPAP50:                 30,
		CPAP75:                 60,
		CPCP50:                 1.5,
		CPMP50:                 20,
		ConversionRateP50:      0.02,
		ContentDeliveryRateP50: 80,
		ViewsPerDollarP50:      200,
	}
}

// IsDefault reports whether b carries no real sample.
func (b Benchmarks) IsDefault() bool {
	return b.SampleSize == 0
}

// BenchmarksFromSegment converts a stored segment into a fully-populated
// baseline.
func BenchmarksFromSegment(s *Segment) Benchmarks {
	b := DefaultBenchmarks()
	if s == nil {
		return b
	}
	b.Segment = s.Name
	b.SampleSize = s.SampleSize
	fill(&b.CPAP25, s.CPAP25)
	fill(&b.CPAP50, s.CPAP50)
	fill(&b.CPAP75, s.CPAP75)
	fill(&b.CPCP50, s.CPCP50)
	fill(&b.CPMP50, s.CPMP50)
	fill(&b.ConversionRateP50, s.ConversionRateP50)
	fill(&b.ContentDeliveryRateP50, s.ContentDeliveryRateP50)
	fill(&b.ViewsPerDollarP50, s.ViewsPerDollarP50)
	return b
}

func fill(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
