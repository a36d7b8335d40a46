package storage

import (
	"context"
	"errors"
	"time"

	"github.com/radiusdt/creatorpulse/internal/models"
)

// ErrNotFound is returned when a keyed lookup has no row.
var ErrNotFound = errors.New("not found")

// =============================================
// BENCHMARK POOL
// =============================================

// ContributionStore is the append-only pool of anonymized samples.
type ContributionStore interface {
	InsertContributions(ctx context.Context, rows []models.Contribution) error

	// ComputeSegment counts the contributions matching filter recorded after
	// since and computes their percentiles. It does not apply any minimum
	// sample size.
	ComputeSegment(ctx context.Context, filter models.SegmentFilter, since time.Time) (*models.Segment, error)
}

// SegmentStore holds the computed benchmark rows, keyed by segment name.
type SegmentStore interface {
	UpsertSegment(ctx context.Context, seg *models.Segment) error
	GetSegment(ctx context.Context, name string) (*models.Segment, error)
	ListSegments(ctx context.Context) ([]*models.Segment, error)
}

// ContributionGuard throttles contributions to one per tenant, platform and
// observation day.
type ContributionGuard interface {
	Acquire(ctx context.Context, tenantID string, platform models.Platform, day time.Time) (bool, error)

	// Release gives a slot back after its contribution failed to store.
	Release(ctx context.Context, tenantID string, platform models.Platform, day time.Time) error
}

// =============================================
// TENANT DATA
// =============================================

// TenantStore reads a tenant's own creator rows.
type TenantStore interface {
	LoadCreators(ctx context.Context, tenantID string) ([]models.CreatorRecord, error)
}

// HistoryStore reads the daily series trend reports are built from.
type HistoryStore interface {
	LoadHistory(ctx context.Context, tenantID string, now time.Time) (*models.History, error)
}

// History lookback windows.
const (
	HistoryLookback        = 730 * 24 * time.Hour
	CreatorHistoryLookback = 30 * 24 * time.Hour
)
