package models

import (
	"errors"
	"strings"
)

// Platform identifies the channel a creator publishes on.
type Platform string

const (
	PlatformYouTube   Platform = "YouTube"
	PlatformTikTok    Platform = "TikTok"
	PlatformInstagram Platform = "Instagram"
	PlatformTwitch    Platform = "Twitch"
)

// MajorPlatforms is the fixed set of platforms that may contribute to, and are
// refreshed in, the shared benchmark pool.
var MajorPlatforms = []Platform{
	PlatformYouTube,
	PlatformTikTok,
	PlatformInstagram,
	PlatformTwitch,
}

// NormalizePlatform maps free-form platform labels ("youtube", " TIKTOK ")
// onto the canonical names. Unknown platforms are returned trimmed but
// otherwise untouched.
func NormalizePlatform(s string) Platform {
	s = strings.TrimSpace(s)
	for _, p := range MajorPlatforms {
		if strings.EqualFold(s, string(p)) {
			return p
		}
	}
	return Platform(s)
}

// IsMajor reports whether p is on the benchmark allow-list.
func (p Platform) IsMajor() bool {
	for _, m := range MajorPlatforms {
		if p == m {
			return true
		}
	}
	return false
}

// PriceTier is a coarse bucket of average per-creator spend. It is the only
// spend-derived value that ever leaves a tenant.
type PriceTier string

const (
	TierSmall  PriceTier = "small"
	TierMedium PriceTier = "medium"
	TierLarge  PriceTier = "large"
)

// PriceTiers is the fixed tier list refreshed by the benchmark job.
var PriceTiers = []PriceTier{TierSmall, TierMedium, TierLarge}

// CreatorRecord is one paid creator placement as stored for a tenant.
type CreatorRecord struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Platform     Platform `json:"platform"`
	CampaignID   string   `json:"campaign_id,omitempty"`
	Spent        float64  `json:"spent"`
	Conversions  int64    `json:"conversions"`
	Clicks       int64    `json:"clicks"`
	Views        int64    `json:"views"`
	ContentCount int      `json:"content_count"`
}

// Validate performs basic sanity checks on a creator record.
func (c *CreatorRecord) Validate() error {
	if c.Name == "" && c.ID == "" {
		return errors.New("creator requires an id or a name")
	}
	if c.Spent < 0 {
		return errors.New("spent must be non-negative")
	}
	if c.Conversions < 0 || c.Clicks < 0 || c.Views < 0 {
		return errors.New("counters must be non-negative")
	}
	return nil
}

// DisplayName returns the name used in reports.
func (c *CreatorRecord) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}
