package benchmark

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/radiusdt/creatorpulse/internal/metrics"
	"github.com/radiusdt/creatorpulse/internal/models"
	"github.com/radiusdt/creatorpulse/internal/storage"
	"go.uber.org/zap"
)

// Resolution levels reported in metrics.
const (
	LevelPlatformTier = "platform_tier"
	LevelPlatform     = "platform"
	LevelTier         = "tier"
	LevelOverall      = "overall"
	LevelDefault      = "default"
)

// Resolver answers "which benchmark applies to platform X / tier Y", falling
// back to broader segments and finally to the static defaults.
type Resolver struct {
	store   storage.SegmentStore
	cache   *ristretto.Cache
	ttl     time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewResolver creates a resolver. A non-positive ttl disables the in-process
// cache.
func NewResolver(store storage.SegmentStore, ttl time.Duration, logger *zap.Logger, m *metrics.Metrics) (*Resolver, error) {
	r := &Resolver{
		store:   store,
		ttl:     ttl,
		logger:  logger,
		metrics: m,
	}
	if ttl <= 0 {
		return r, nil
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1000,
		MaxCost:     256,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	r.cache = cache
	return r, nil
}

// Resolve returns the most specific available benchmark. Lookup errors are
// logged and treated as misses, so Resolve always returns a usable baseline.
func (r *Resolver) Resolve(ctx context.Context, platform models.Platform, tier models.PriceTier) models.Benchmarks {
	key := string(platform) + "|" + string(tier)

	if r.cache != nil {
		if v, ok := r.cache.Get(key); ok {
			r.recordCache(true)
			return v.(models.Benchmarks)
		}
		r.recordCache(false)
	}

	bench, level := r.lookup(ctx, platform, tier)
	if r.metrics != nil {
		r.metrics.RecordResolve(level)
	}

	if r.cache != nil {
		r.cache.SetWithTTL(key, bench, 1, r.ttl)
	}
	return bench
}

func (r *Resolver) lookup(ctx context.Context, platform models.Platform, tier models.PriceTier) (models.Benchmarks, string) {
	for _, name := range models.LookupChain(platform, tier) {
		seg, err := r.store.GetSegment(ctx, name)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			r.logger.Warn("benchmark lookup failed, trying broader segment",
				zap.String("segment", name),
				zap.Error(err),
			)
			continue
		}
		return models.BenchmarksFromSegment(seg), levelOf(name, platform, tier)
	}
	return models.DefaultBenchmarks(), LevelDefault
}

func levelOf(name string, platform models.Platform, tier models.PriceTier) string {
	switch {
	case name == models.OverallSegment:
		return LevelOverall
	case platform != "" && tier != "" && name == (models.SegmentFilter{Platform: platform, Tier: tier}).Name():
		return LevelPlatformTier
	case platform != "" && name == (models.SegmentFilter{Platform: platform}).Name():
		return LevelPlatform
	default:
		return LevelTier
	}
}

// Segments lists every stored segment row.
func (r *Resolver) Segments(ctx context.Context) ([]*models.Segment, error) {
	return r.store.ListSegments(ctx)
}

// Invalidate clears cached resolutions.
func (r *Resolver) Invalidate() {
	if r.cache != nil {
		r.cache.Clear()
	}
}

// Close releases the cache.
func (r *Resolver) Close() {
	if r.cache != nil {
		r.cache.Close()
	}
}

func (r *Resolver) recordCache(hit bool) {
	if r.metrics != nil {
		r.metrics.RecordCacheLookup(hit)
	}
}
