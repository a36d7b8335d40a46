package benchmark

import (
	"context"
	"fmt"
	"time"

	"github.com/radiusdt/creatorpulse/internal/metrics"
	"github.com/radiusdt/creatorpulse/internal/models"
	"github.com/radiusdt/creatorpulse/internal/storage"
	"go.uber.org/zap"
)

// MinSegmentSample is the smallest sample a segment row is written for.
const MinSegmentSample = 10

// DefaultRetention is the trailing window of contributions used for
// percentiles.
const DefaultRetention = 90 * 24 * time.Hour

// RefreshSegments enumerates every segment recomputed on a refresh: overall,
// each major platform, each price tier and every platform×tier pair.
func RefreshSegments() []models.SegmentFilter {
	filters := []models.SegmentFilter{{}}
	for _, p := range models.MajorPlatforms {
		filters = append(filters, models.SegmentFilter{Platform: p})
	}
	for _, t := range models.PriceTiers {
		filters = append(filters, models.SegmentFilter{Tier: t})
	}
	for _, p := range models.MajorPlatforms {
		for _, t := range models.PriceTiers {
			filters = append(filters, models.SegmentFilter{Platform: p, Tier: t})
		}
	}
	return filters
}

// RefreshResult summarizes one refresh cycle.
type RefreshResult struct {
	Updated  []string      `json:"updated"`
	Skipped  []string      `json:"skipped"`
	Failed   []string      `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// Invalidator drops cached lookups after segments change.
type Invalidator interface {
	Invalidate()
}

// Refresher recomputes segment percentiles from the contribution pool.
type Refresher struct {
	contributions storage.ContributionStore
	segments      storage.SegmentStore
	retention     time.Duration
	invalidator   Invalidator
	logger        *zap.Logger
	metrics       *metrics.Metrics
	now           func() time.Time
}

// NewRefresher creates a refresher. A non-positive retention uses
// DefaultRetention; invalidator and m may be nil.
func NewRefresher(
	contributions storage.ContributionStore,
	segments storage.SegmentStore,
	retention time.Duration,
	invalidator Invalidator,
	logger *zap.Logger,
	m *metrics.Metrics,
) *Refresher {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Refresher{
		contributions: contributions,
		segments:      segments,
		retention:     retention,
		invalidator:   invalidator,
		logger:        logger,
		metrics:       m,
		now:           time.Now,
	}
}

// Refresh recomputes every segment. Segments are independent: one failing is
// logged and does not stop the rest.
func (r *Refresher) Refresh(ctx context.Context) RefreshResult {
	start := time.Now()
	since := r.now().Add(-r.retention)

	var res RefreshResult
	for _, filter := range RefreshSegments() {
		name := filter.Name()

		written, err := r.refreshOne(ctx, filter, since)
		switch {
		case err != nil:
			r.logger.Error("segment refresh failed", zap.String("segment", name), zap.Error(err))
			res.Failed = append(res.Failed, name)
			r.record("failed")
		case written:
			res.Updated = append(res.Updated, name)
			r.record("updated")
		default:
			res.Skipped = append(res.Skipped, name)
			r.record("insufficient_sample")
		}
	}

	if len(res.Updated) > 0 && r.invalidator != nil {
		r.invalidator.Invalidate()
	}

	res.Duration = time.Since(start)
	if r.metrics != nil {
		r.metrics.RecordRefresh(res.Duration)
	}

	r.logger.Info("benchmark refresh completed",
		zap.Int("updated", len(res.Updated)),
		zap.Int("skipped", len(res.Skipped)),
		zap.Int("failed", len(res.Failed)),
		zap.Duration("duration", res.Duration),
	)
	return res
}

func (r *Refresher) refreshOne(ctx context.Context, filter models.SegmentFilter, since time.Time) (written bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic computing segment: %v", rec)
		}
	}()

	seg, err := r.contributions.ComputeSegment(ctx, filter, since)
	if err != nil {
		return false, err
	}
	if seg == nil || seg.SampleSize < MinSegmentSample {
		return false, nil
	}

	seg.Name = filter.Name()
	if seg.UpdatedAt.IsZero() {
		seg.UpdatedAt = r.now().UTC()
	}
	if err := r.segments.UpsertSegment(ctx, seg); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Refresher) record(result string) {
	if r.metrics != nil {
		r.metrics.RecordSegmentRefresh(result)
	}
}
