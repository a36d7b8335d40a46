package analytics

import (
	"math"
	"sort"

	"github.com/radiusdt/creatorpulse/internal/models"
)

// UnknownPlatform groups records that arrive without a platform label.
const UnknownPlatform models.Platform = "Unknown"

// Price tier boundaries on average spend per creator, in dollars.
const (
	SmallTierMax  = 500.0
	MediumTierMax = 2000.0
)

// Snapshot aggregates the creators of one platform (or of the whole tenant).
type Snapshot struct {
	Platform        models.Platform `json:"platform"`
	Spent           float64         `json:"spent"`
	Conversions     int64           `json:"conversions"`
	Clicks          int64           `json:"clicks"`
	Views           int64           `json:"views"`
	Count           int             `json:"count"`
	ConvertingCount int             `json:"converting_count"`
	DeliveredCount  int             `json:"delivered_count"`
	WastedSpend     float64         `json:"wasted_spend"`
}

// CPA is spend per conversion.
func (s Snapshot) CPA() *float64 {
	return ratio(s.Spent, float64(s.Conversions))
}

// CPC is spend per click.
func (s Snapshot) CPC() *float64 {
	return ratio(s.Spent, float64(s.Clicks))
}

// CPM is spend per thousand views.
func (s Snapshot) CPM() *float64 {
	return ratio(s.Spent*1000, float64(s.Views))
}

// ConversionRate is conversions per click, as a fraction.
func (s Snapshot) ConversionRate() *float64 {
	return ratio(float64(s.Conversions), float64(s.Clicks))
}

// ViewsPerDollar is views per unit of spend.
func (s Snapshot) ViewsPerDollar() *float64 {
	return ratio(float64(s.Views), s.Spent)
}

// ContentDeliveryRate is the percentage (0-100) of creators with at least one
// piece of tracked content.
func (s Snapshot) ContentDeliveryRate() *float64 {
	return ratio(float64(s.DeliveredCount)*100, float64(s.Count))
}

// AvgSpendPerCreator is the mean spend across creators in the snapshot.
func (s Snapshot) AvgSpendPerCreator() *float64 {
	return ratio(s.Spent, float64(s.Count))
}

// PriceTier derives the coarse tier from average per-creator spend. A snapshot
// without creators is small.
func (s Snapshot) PriceTier() models.PriceTier {
	avg := s.AvgSpendPerCreator()
	if avg == nil {
		return models.TierSmall
	}
	return TierFor(*avg)
}

func (s *Snapshot) add(c models.CreatorRecord) {
	spent := nonNegative(c.Spent)
	conv := nonNegativeInt(c.Conversions)

	s.Spent += spent
	s.Conversions += conv
	s.Clicks += nonNegativeInt(c.Clicks)
	s.Views += nonNegativeInt(c.Views)
	s.Count++
	if conv > 0 {
		s.ConvertingCount++
	} else {
		s.WastedSpend += spent
	}
	if c.ContentCount > 0 {
		s.DeliveredCount++
	}
}

// Breakdown is the per-platform view of a tenant's creators.
type Breakdown struct {
	Platforms map[models.Platform]*Snapshot `json:"platforms"`
	Totals    Snapshot                      `json:"totals"`
}

// Aggregate groups creator records by platform. It performs no I/O.
func Aggregate(records []models.CreatorRecord) *Breakdown {
	b := &Breakdown{
		Platforms: make(map[models.Platform]*Snapshot),
	}

	for _, rec := range records {
		platform := models.NormalizePlatform(string(rec.Platform))
		if platform == "" {
			platform = UnknownPlatform
		}

		snap, ok := b.Platforms[platform]
		if !ok {
			snap = &Snapshot{Platform: platform}
			b.Platforms[platform] = snap
		}
		snap.add(rec)
		b.Totals.add(rec)
	}

	return b
}

// Platform returns the snapshot for p.
func (b *Breakdown) Platform(p models.Platform) (Snapshot, bool) {
	snap, ok := b.Platforms[p]
	if !ok {
		return Snapshot{Platform: p}, false
	}
	return *snap, true
}

// Sorted returns platform snapshots by descending spend, then by name.
func (b *Breakdown) Sorted() []Snapshot {
	out := make([]Snapshot, 0, len(b.Platforms))
	for _, snap := range b.Platforms {
		out = append(out, *snap)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Spent != out[j].Spent {
			return out[i].Spent > out[j].Spent
		}
		return out[i].Platform < out[j].Platform
	})
	return out
}

// ConvertingPlatforms counts platforms with at least one converting creator.
func (b *Breakdown) ConvertingPlatforms() int {
	n := 0
	for _, snap := range b.Platforms {
		if snap.ConvertingCount > 0 {
			n++
		}
	}
	return n
}

// SpendingPlatforms counts platforms that received any spend.
func (b *Breakdown) SpendingPlatforms() int {
	n := 0
	for _, snap := range b.Platforms {
		if snap.Spent > 0 {
			n++
		}
	}
	return n
}

// TopPlatformShare is the fraction of total spend on the largest platform.
func (b *Breakdown) TopPlatformShare() *float64 {
	sorted := b.Sorted()
	if len(sorted) == 0 {
		return nil
	}
	return ratio(sorted[0].Spent, b.Totals.Spent)
}

// WastedSpendRatio is spend on zero-conversion creators over total spend.
func (b *Breakdown) WastedSpendRatio() *float64 {
	return ratio(b.Totals.WastedSpend, b.Totals.Spent)
}

// DominantPlatform is the platform with the highest spend, or "" when the
// tenant has no creators.
func (b *Breakdown) DominantPlatform() models.Platform {
	sorted := b.Sorted()
	if len(sorted) == 0 {
		return ""
	}
	return sorted[0].Platform
}

// TierFor maps average per-creator spend onto a price tier.
func TierFor(avgSpendPerCreator float64) models.PriceTier {
	switch {
	case avgSpendPerCreator < SmallTierMax:
		return models.TierSmall
	case avgSpendPerCreator < MediumTierMax:
		return models.TierMedium
	default:
		return models.TierLarge
	}
}

// ratio returns num/den, or nil when the result would not be a finite
// non-negative number.
func ratio(num, den float64) *float64 {
	if den <= 0 || math.IsNaN(num) || math.IsInf(num, 0) || math.IsInf(den, 0) {
		return nil
	}
	v := num / den
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return nil
	}
	return &v
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func nonNegativeInt(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
