package models

import "fmt"

// OverallSegment is the broadest benchmark bucket.
const OverallSegment = "overall"

// SegmentFilter selects contributions for one benchmark segment. Empty fields
// mean "any".
type SegmentFilter struct {
	Platform Platform
	Tier     PriceTier
}

// Name returns the unique segment key for the filter.
func (f SegmentFilter) Name() string {
	switch {
	case f.Platform != "" && f.Tier != "":
		return fmt.Sprintf("%s:%s", f.Platform, f.Tier)
	case f.Platform != "":
		return "platform:" + string(f.Platform)
	case f.Tier != "":
		return "tier:" + string(f.Tier)
	default:
		return OverallSegment
	}
}

// Matches reports whether c falls inside the filter.
func (f SegmentFilter) Matches(c Contribution) bool {
	if f.Platform != "" && c.Platform != f.Platform {
		return false
	}
	if f.Tier != "" && c.PriceTier != f.Tier {
		return false
	}
	return true
}

// LookupChain lists segment names from most to least specific for a
// platform/tier pair. Either may be empty.
func LookupChain(platform Platform, tier PriceTier) []string {
	chain := make([]string, 0, 4)
	if platform != "" && tier != "" {
		chain = append(chain, SegmentFilter{Platform: platform, Tier: tier}.Name())
	}
	if platform != "" {
		chain = append(chain, SegmentFilter{Platform: platform}.Name())
	}
	if tier != "" {
		chain = append(chain, SegmentFilter{Tier: tier}.Name())
	}
	return append(chain, OverallSegment)
}
