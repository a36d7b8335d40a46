package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/radiusdt/creatorpulse/internal/models"
)

// PostgresTenantStore implements TenantStore and HistoryStore using PostgreSQL.
type PostgresTenantStore struct {
	pool *pgxpool.Pool
}

func NewPostgresTenantStore(pool *pgxpool.Pool) *PostgresTenantStore {
	return &PostgresTenantStore{pool: pool}
}

// LoadCreators returns ErrNotFound when the tenant has no creator rows.
func (s *PostgresTenantStore) LoadCreators(ctx context.Context, tenantID string) ([]models.CreatorRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, platform, campaign_id, spent::float8,
			   conversions, clicks, views, content_count
		FROM creators WHERE tenant_id = $1
		ORDER BY id
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load creators: %w", err)
	}
	defer rows.Close()

	creators := make([]models.CreatorRecord, 0)
	for rows.Next() {
		var c models.CreatorRecord
		var name, platform, campaignID *string
		var spent *float64
		var conversions, clicks, views *int64
		var contentCount *int32

		if err := rows.Scan(
			&c.ID, &name, &platform, &campaignID, &spent,
			&conversions, &clicks, &views, &contentCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan creator: %w", err)
		}

		if name != nil {
			c.Name = *name
		}
		if platform != nil {
			c.Platform = models.NormalizePlatform(*platform)
		}
		if campaignID != nil {
			c.CampaignID = *campaignID
		}
		if spent != nil {
			c.Spent = *spent
		}
		if conversions != nil {
			c.Conversions = *conversions
		}
		if clicks != nil {
			c.Clicks = *clicks
		}
		if views != nil {
			c.Views = *views
		}
		if contentCount != nil {
			c.ContentCount = int(*contentCount)
		}

		creators = append(creators, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read creators: %w", err)
	}
	if len(creators) == 0 {
		return nil, ErrNotFound
	}

	return creators, nil
}

func (s *PostgresTenantStore) LoadHistory(ctx context.Context, tenantID string, now time.Time) (*models.History, error) {
	h := &models.History{}
	since := now.Add(-HistoryLookback)

	convRows, err := s.pool.Query(ctx, `
		SELECT day,
			   COALESCE(SUM(conversions), 0)::bigint,
			   COALESCE(SUM(clicks), 0)::bigint,
			   COALESCE(SUM(cost), 0)::float8
		FROM creator_daily_stats
		WHERE tenant_id = $1 AND day >= $2::date AND day <= $3::date
		GROUP BY day
		ORDER BY day
	`, tenantID, since, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversion history: %w", err)
	}
	for convRows.Next() {
		var d models.DailyConversions
		if err := convRows.Scan(&d.Day, &d.Conversions, &d.Clicks, &d.Cost); err != nil {
			convRows.Close()
			return nil, fmt.Errorf("failed to scan conversion history: %w", err)
		}
		h.Conversions = append(h.Conversions, d)
	}
	convRows.Close()
	if err := convRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read conversion history: %w", err)
	}

	viewRows, err := s.pool.Query(ctx, `
		SELECT day,
			   COALESCE(SUM(views), 0)::bigint,
			   COALESCE(SUM(likes), 0)::bigint
		FROM content_daily_stats
		WHERE tenant_id = $1 AND day >= $2::date AND day <= $3::date
		GROUP BY day
		ORDER BY day
	`, tenantID, since, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load view history: %w", err)
	}
	for viewRows.Next() {
		var d models.DailyViews
		if err := viewRows.Scan(&d.Day, &d.Views, &d.Likes); err != nil {
			viewRows.Close()
			return nil, fmt.Errorf("failed to scan view history: %w", err)
		}
		h.Views = append(h.Views, d)
	}
	viewRows.Close()
	if err := viewRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read view history: %w", err)
	}

	creatorRows, err := s.pool.Query(ctx, `
		SELECT COALESCE(c.name, s.creator_id), s.day,
			   COALESCE(SUM(s.conversions), 0)::bigint,
			   COALESCE(SUM(s.clicks), 0)::bigint
		FROM creator_daily_stats s
		LEFT JOIN creators c ON c.id = s.creator_id
		WHERE s.tenant_id = $1 AND s.day >= $2::date AND s.day <= $3::date
		GROUP BY 1, 2
		ORDER BY 2
	`, tenantID, now.Add(-CreatorHistoryLookback), now)
	if err != nil {
		return nil, fmt.Errorf("failed to load creator history: %w", err)
	}
	defer creatorRows.Close()
	for creatorRows.Next() {
		var d models.CreatorDay
		if err := creatorRows.Scan(&d.Creator, &d.Day, &d.Conversions, &d.Clicks); err != nil {
			return nil, fmt.Errorf("failed to scan creator history: %w", err)
		}
		h.CreatorDays = append(h.CreatorDays, d)
	}
	if err := creatorRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read creator history: %w", err)
	}

	return h, nil
}
