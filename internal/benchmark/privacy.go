// Package benchmark maintains the cross-tenant benchmark pool: it decides
// which tenant aggregates may be shared, perturbs them, recomputes segment
// percentiles on a schedule and resolves the best available segment for a
// request.
//
// The sharing rules are heuristic obfuscation. Coarse price tiers, minimum
// cohort sizes and ±10% multiplicative noise make a single row hard to tie to
// a tenant, but they are not differential privacy and give no bound against
// reconstruction from repeated observations over time.
package benchmark

import (
	"sort"

	"github.com/radiusdt/creatorpulse/internal/analytics"
)

// Cohort thresholds for sharing a tenant's aggregates.
const (
	MinConvertingPlatforms = 2
	MinTotalCreators       = 5
	MinPlatformCreators    = 3
)

// ShouldContribute reports whether a tenant's data may enter the pool at all.
func ShouldContribute(b *analytics.Breakdown, totalCreators int) bool {
	if b == nil {
		return false
	}
	return b.ConvertingPlatforms() >= MinConvertingPlatforms && totalCreators >= MinTotalCreators
}

// EligiblePlatforms returns the platform snapshots that may each produce one
// contribution, ordered by platform name.
func EligiblePlatforms(b *analytics.Breakdown) []analytics.Snapshot {
	if b == nil {
		return nil
	}

	out := make([]analytics.Snapshot, 0, len(b.Platforms))
	for _, snap := range b.Platforms {
		if snap.Count < MinPlatformCreators {
			continue
		}
		if !snap.Platform.IsMajor() {
			continue
		}
		if snap.CPA() == nil && snap.ConversionRate() == nil {
			continue
		}
		out = append(out, *snap)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out
}
