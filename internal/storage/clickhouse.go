package storage

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/radiusdt/creatorpulse/internal/models"
)

// ClickHouseContributionStore implements ContributionStore on ClickHouse. The
// computed segments still live in the relational SegmentStore.
type ClickHouseContributionStore struct {
	conn driver.Conn
}

func NewClickHouseContributionStore(conn driver.Conn) *ClickHouseContributionStore {
	return &ClickHouseContributionStore{conn: conn}
}

func (s *ClickHouseContributionStore) InsertContributions(ctx context.Context, rows []models.Contribution) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO benchmark_data (
			id, platform, price_tier, cpa, cpc, cpm,
			conversion_rate, content_delivery_rate, views_per_dollar, recorded_at
		)`)
	if err != nil {
		return fmt.Errorf("failed to prepare contribution batch: %w", err)
	}

	for _, c := range rows {
		if err := batch.Append(
			c.ID, string(c.Platform), string(c.PriceTier), c.CPA, c.CPC, c.CPM,
			c.ConversionRate, c.ContentDeliveryRate, c.ViewsPerDollar, c.RecordedAt,
		); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("failed to append contribution: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send contribution batch: %w", err)
	}
	return nil
}

// quantileExactInclusive interpolates linearly between closest ranks, like
// percentile_cont. An empty column yields NaN, which maps to nil.
func (s *ClickHouseContributionStore) ComputeSegment(ctx context.Context, filter models.SegmentFilter, since time.Time) (*models.Segment, error) {
	var (
		count                                   uint64
		cpa25, cpa50, cpa75, cpc, cpm, cvr, cdr float64
		vpd                                     float64
	)

	err := s.conn.QueryRow(ctx, `
		SELECT
			count(),
			quantileExactInclusiveIf(0.25)(assumeNotNull(cpa), isNotNull(cpa)),
			quantileExactInclusiveIf(0.5)(assumeNotNull(cpa), isNotNull(cpa)),
			quantileExactInclusiveIf(0.75)(assumeNotNull(cpa), isNotNull(cpa)),
			quantileExactInclusiveIf(0.5)(assumeNotNull(cpc), isNotNull(cpc)),
			quantileExactInclusiveIf(0.5)(assumeNotNull(cpm), isNotNull(cpm)),
			quantileExactInclusiveIf(0.5)(assumeNotNull(conversion_rate), isNotNull(conversion_rate)),
			quantileExactInclusiveIf(0.5)(assumeNotNull(content_delivery_rate), isNotNull(content_delivery_rate)),
			quantileExactInclusiveIf(0.5)(assumeNotNull(views_per_dollar), isNotNull(views_per_dollar))
		FROM benchmark_data
		WHERE recorded_at > ?
		  AND (? = '' OR platform = ?)
		  AND (? = '' OR price_tier = ?)
	`, since,
		string(filter.Platform), string(filter.Platform),
		string(filter.Tier), string(filter.Tier),
	).Scan(&count, &cpa25, &cpa50, &cpa75, &cpc, &cpm, &cvr, &cdr, &vpd)
	if err != nil {
		return nil, fmt.Errorf("failed to compute segment %s: %w", filter.Name(), err)
	}

	return &models.Segment{
		Name:                   filter.Name(),
		SampleSize:             int(count),
		CPAP25:                 finite(cpa25),
		CPAP50:                 finite(cpa50),
		CPAP75:                 finite(cpa75),
		CPCP50:                 finite(cpc),
		CPMP50:                 finite(cpm),
		ConversionRateP50:      finite(cvr),
		ContentDeliveryRateP50: finite(cdr),
		ViewsPerDollarP50:      finite(vpd),
		UpdatedAt:              time.Now().UTC(),
	}, nil
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
