package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/radiusdt/creatorpulse/internal/models"
)

// PostgresBenchmarkStore implements ContributionStore and SegmentStore using
// PostgreSQL's ordered-set aggregates.
type PostgresBenchmarkStore struct {
	pool *pgxpool.Pool
}

func NewPostgresBenchmarkStore(pool *pgxpool.Pool) *PostgresBenchmarkStore {
	return &PostgresBenchmarkStore{pool: pool}
}

func (s *PostgresBenchmarkStore) InsertContributions(ctx context.Context, rows []models.Contribution) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range rows {
		batch.Queue(`
			INSERT INTO benchmark_data (
				id, platform, price_tier, cpa, cpc, cpm,
				conversion_rate, content_delivery_rate, views_per_dollar, recorded_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, c.ID, string(c.Platform), string(c.PriceTier), c.CPA, c.CPC, c.CPM,
			c.ConversionRate, c.ContentDeliveryRate, c.ViewsPerDollar, c.RecordedAt)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range rows {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert contribution: %w", err)
		}
	}
	return nil
}

func (s *PostgresBenchmarkStore) ComputeSegment(ctx context.Context, filter models.SegmentFilter, since time.Time) (*models.Segment, error) {
	var platform, tier *string
	if filter.Platform != "" {
		p := string(filter.Platform)
		platform = &p
	}
	if filter.Tier != "" {
		t := string(filter.Tier)
		tier = &t
	}

	seg := &models.Segment{Name: filter.Name()}
	var count int64

	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			percentile_cont(0.25) WITHIN GROUP (ORDER BY cpa),
			percentile_cont(0.5)  WITHIN GROUP (ORDER BY cpa),
			percentile_cont(0.75) WITHIN GROUP (ORDER BY cpa),
			percentile_cont(0.5)  WITHIN GROUP (ORDER BY cpc),
			percentile_cont(0.5)  WITHIN GROUP (ORDER BY cpm),
			percentile_cont(0.5)  WITHIN GROUP (ORDER BY conversion_rate),
			percentile_cont(0.5)  WITHIN GROUP (ORDER BY content_delivery_rate),
			percentile_cont(0.5)  WITHIN GROUP (ORDER BY views_per_dollar),
			now()
		FROM benchmark_data
		WHERE recorded_at > $1
		  AND ($2::text IS NULL OR platform = $2)
		  AND ($3::text IS NULL OR price_tier = $3)
	`, since, platform, tier).Scan(
		&count,
		&seg.CPAP25, &seg.CPAP50, &seg.CPAP75,
		&seg.CPCP50, &seg.CPMP50, &seg.ConversionRateP50,
		&seg.ContentDeliveryRateP50, &seg.ViewsPerDollarP50,
		&seg.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute segment %s: %w", seg.Name, err)
	}

	seg.SampleSize = int(count)
	return seg, nil
}

func (s *PostgresBenchmarkStore) UpsertSegment(ctx context.Context, seg *models.Segment) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO benchmarks (
			segment, sample_size, cpa_p25, cpa_p50, cpa_p75, cpc_p50, cpm_p50,
			conversion_rate_p50, content_delivery_rate_p50, views_per_dollar_p50, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (segment) DO UPDATE SET
			sample_size = EXCLUDED.sample_size,
			cpa_p25 = EXCLUDED.cpa_p25,
			cpa_p50 = EXCLUDED.cpa_p50,
			cpa_p75 = EXCLUDED.cpa_p75,
			cpc_p50 = EXCLUDED.cpc_p50,
			cpm_p50 = EXCLUDED.cpm_p50,
			conversion_rate_p50 = EXCLUDED.conversion_rate_p50,
			content_delivery_rate_p50 = EXCLUDED.content_delivery_rate_p50,
			views_per_dollar_p50 = EXCLUDED.views_per_dollar_p50,
			updated_at = EXCLUDED.updated_at
	`, seg.Name, seg.SampleSize, seg.CPAP25, seg.CPAP50, seg.CPAP75, seg.CPCP50, seg.CPMP50,
		seg.ConversionRateP50, seg.ContentDeliveryRateP50, seg.ViewsPerDollarP50, seg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert segment %s: %w", seg.Name, err)
	}
	return nil
}

const selectSegment = `
	SELECT segment, sample_size, cpa_p25, cpa_p50, cpa_p75, cpc_p50, cpm_p50,
		   conversion_rate_p50, content_delivery_rate_p50, views_per_dollar_p50, updated_at
	FROM benchmarks`

func (s *PostgresBenchmarkStore) GetSegment(ctx context.Context, name string) (*models.Segment, error) {
	seg, err := scanSegment(s.pool.QueryRow(ctx, selectSegment+` WHERE segment = $1`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get segment %s: %w", name, err)
	}
	return seg, nil
}

func (s *PostgresBenchmarkStore) ListSegments(ctx context.Context) ([]*models.Segment, error) {
	rows, err := s.pool.Query(ctx, selectSegment+` ORDER BY segment`)
	if err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}
	defer rows.Close()

	var segments []*models.Segment
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

func scanSegment(row pgx.Row) (*models.Segment, error) {
	var seg models.Segment
	if err := row.Scan(
		&seg.Name, &seg.SampleSize,
		&seg.CPAP25, &seg.CPAP50, &seg.CPAP75,
		&seg.CPCP50, &seg.CPMP50, &seg.ConversionRateP50,
		&seg.ContentDeliveryRateP50, &seg.ViewsPerDollarP50,
		&seg.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &seg, nil
}
