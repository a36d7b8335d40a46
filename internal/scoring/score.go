// Package scoring turns a tenant's aggregated metrics into a 0-100 health
// score and a short list of recommended actions.
package scoring

import (
	"fmt"
	"math"

	"github.com/radiusdt/creatorpulse/internal/analytics"
	"github.com/radiusdt/creatorpulse/internal/models"
)

// Penalty caps per category.
const (
	MaxCPAPenalty             = 30
	MaxContentPenalty         = 25
	MaxWastedPenalty          = 20
	MaxDiversificationPenalty = 15
	MaxActivityPenalty        = 5
)

// MinActiveCreators is the creator count under which a tenant is flagged as
// low activity.
const MinActiveCreators = 3

// CPA status values.
const (
	StatusGood     = "good"
	StatusConcern  = "concern"
	StatusHigh     = "high"
	StatusCritical = "critical"
	StatusNoData   = "no_data"
)

// TenantData is the input of CalculateScore.
type TenantData struct {
	Breakdown *analytics.Breakdown
	Creators  []models.CreatorRecord
}

// Breakdown lists the points deducted per category.
type Breakdown struct {
	CPA             int `json:"cpa"`
	ContentDelivery int `json:"content_delivery"`
	WastedSpend     int `json:"wasted_spend"`
	Diversification int `json:"diversification"`
	Activity        int `json:"activity"`
}

// Total is the sum of all deductions.
func (b Breakdown) Total() int {
	return b.CPA + b.ContentDelivery + b.WastedSpend + b.Diversification + b.Activity
}

// Comparison places the tenant next to the benchmark it was scored against.
type Comparison struct {
	Segment                  string   `json:"segment"`
	SampleSize               int      `json:"sample_size"`
	UsingDefaults            bool     `json:"using_defaults"`
	CPA                      *float64 `json:"cpa"`
	CPABenchmark             float64  `json:"cpa_benchmark"`
	CPAStatus                string   `json:"cpa_status"`
	ContentDeliveryRate      *float64 `json:"content_delivery_rate"`
	ContentDeliveryBenchmark float64  `json:"content_delivery_benchmark"`
	ViewsPerDollar           *float64 `json:"views_per_dollar"`
	ViewsPerDollarBenchmark  float64  `json:"views_per_dollar_benchmark"`
	WastedSpendRatio         *float64 `json:"wasted_spend_ratio"`
}

// Result is a scored tenant.
type Result struct {
	Score               int        `json:"score"`
	Issues              []string   `json:"issues"`
	Breakdown           Breakdown  `json:"breakdown"`
	BenchmarkComparison Comparison `json:"benchmark_comparison"`
}

// effective substitutes the static defaults for an empty benchmark and for any
// non-positive threshold.
func effective(b models.Benchmarks) models.Benchmarks {
	def := models.DefaultBenchmarks()
	if b.SampleSize <= 0 {
		return def
	}
	positive(&b.CPAP50, def.CPAP50)
	positive(&b.CPAP75, def.CPAP75)
	positive(&b.ContentDeliveryRateP50, def.ContentDeliveryRateP50)
	positive(&b.ViewsPerDollarP50, def.ViewsPerDollarP50)
	if b.CPAP75 < b.CPAP50 {
		b.CPAP75 = b.CPAP50
	}
	return b
}

func positive(v *float64, fallback float64) {
	if *v <= 0 || math.IsNaN(*v) || math.IsInf(*v, 0) {
		*v = fallback
	}
}

// CalculateScore starts at 100 and deducts fixed penalties. It performs no
// I/O and returns the same result for the same inputs.
func CalculateScore(data TenantData, bench models.Benchmarks) Result {
	bd := data.Breakdown
	if bd == nil {
		bd = analytics.Aggregate(data.Creators)
	}
	b := effective(bench)
	totals := bd.Totals

	r := Result{
		Issues: []string{},
		BenchmarkComparison: Comparison{
			Segment:                  b.Segment,
			SampleSize:               b.SampleSize,
			UsingDefaults:            b.IsDefault(),
			CPA:                      totals.CPA(),
			CPABenchmark:             b.CPAP50,
			CPAStatus:                StatusNoData,
			ContentDeliveryRate:      totals.ContentDeliveryRate(),
			ContentDeliveryBenchmark: b.ContentDeliveryRateP50,
			ViewsPerDollar:           totals.ViewsPerDollar(),
			ViewsPerDollarBenchmark:  b.ViewsPerDollarP50,
			WastedSpendRatio:         bd.WastedSpendRatio(),
		},
	}

	// CPA
	switch cpa := totals.CPA(); {
	case totals.Spent > 0 && totals.Conversions == 0:
		r.Breakdown.CPA = MaxCPAPenalty
		r.Issues = append(r.Issues, fmt.Sprintf("$%.0f spent with zero conversions", totals.Spent))
	case cpa == nil:
	case *cpa > 2*b.CPAP75:
		r.Breakdown.CPA = 25
		r.BenchmarkComparison.CPAStatus = StatusCritical
		r.Issues = append(r.Issues, fmt.Sprintf("CPA $%.2f is more than double the p75 benchmark ($%.2f)", *cpa, b.CPAP75))
	case *cpa > b.CPAP75:
		r.Breakdown.CPA = 15
		r.BenchmarkComparison.CPAStatus = StatusHigh
		r.Issues = append(r.Issues, fmt.Sprintf("CPA $%.2f is above the p75 benchmark ($%.2f)", *cpa, b.CPAP75))
	case *cpa > b.CPAP50:
		r.Breakdown.CPA = 5
		r.BenchmarkComparison.CPAStatus = StatusConcern
		r.Issues = append(r.Issues, fmt.Sprintf("CPA $%.2f is above the median benchmark ($%.2f)", *cpa, b.CPAP50))
	default:
		r.BenchmarkComparison.CPAStatus = StatusGood
	}

	// Content delivery
	if rate := totals.ContentDeliveryRate(); rate != nil {
		switch p50 := b.ContentDeliveryRateP50; {
		case *rate < 0.5*p50:
			r.Breakdown.ContentDelivery = MaxContentPenalty
		case *rate < 0.75*p50:
			r.Breakdown.ContentDelivery = 15
		case *rate < p50:
			r.Breakdown.ContentDelivery = 5
		}
		if r.Breakdown.ContentDelivery > 0 {
			r.Issues = append(r.Issues, fmt.Sprintf("Only %.0f%% of creators delivered content (benchmark %.0f%%)", *rate, b.ContentDeliveryRateP50))
		}
	}

	// Wasted spend
	if ratio := bd.WastedSpendRatio(); ratio != nil {
		switch {
		case *ratio > 0.5:
			r.Breakdown.WastedSpend = MaxWastedPenalty
		case *ratio > 0.3:
			r.Breakdown.WastedSpend = 12
		case *ratio > 0.15:
			r.Breakdown.WastedSpend = 5
		}
		if r.Breakdown.WastedSpend > 0 {
			r.Issues = append(r.Issues, fmt.Sprintf("%.0f%% of spend went to creators with no conversions", *ratio*100))
		}
	}

	// Diversification
	if totals.Spent > 0 {
		if bd.SpendingPlatforms() == 1 {
			r.Breakdown.Diversification = MaxDiversificationPenalty
			r.Issues = append(r.Issues, fmt.Sprintf("All spend is on %s", bd.DominantPlatform()))
		} else if share := bd.TopPlatformShare(); share != nil && *share > 0.8 {
			r.Breakdown.Diversification = 8
			r.Issues = append(r.Issues, fmt.Sprintf("%.0f%% of spend is on %s", *share*100, bd.DominantPlatform()))
		}
	}

	// Activity
	if totals.Count < MinActiveCreators {
		r.Breakdown.Activity = MaxActivityPenalty
		r.Issues = append(r.Issues, fmt.Sprintf("Only %d active creators", totals.Count))
	}

	r.Score = clamp(100-r.Breakdown.Total(), 0, 100)
	return r
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
