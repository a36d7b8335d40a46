// Package dashboard assembles the per-tenant views served over HTTP.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/radiusdt/creatorpulse/internal/analytics"
	"github.com/radiusdt/creatorpulse/internal/briefing"
	"github.com/radiusdt/creatorpulse/internal/metrics"
	"github.com/radiusdt/creatorpulse/internal/models"
	"github.com/radiusdt/creatorpulse/internal/scoring"
	"github.com/radiusdt/creatorpulse/internal/storage"
	"github.com/radiusdt/creatorpulse/internal/trends"
)

var (
	// ErrTenantNotFound means the tenant has no creator data at all.
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrTenantData means the tenant's creator rows could not be read.
	ErrTenantData = errors.New("tenant data unavailable")
)

// IdentityResolver maps a raw tenant id onto its canonical key.
type IdentityResolver interface {
	Canonical(ctx context.Context, rawID string) (string, error)
}

// BenchmarkResolver returns the benchmark for a platform and tier.
type BenchmarkResolver interface {
	Resolve(ctx context.Context, platform models.Platform, tier models.PriceTier) models.Benchmarks
}

// ContributionSink accepts anonymized contributions without blocking.
type ContributionSink interface {
	Submit(tenantID string, b *analytics.Breakdown)
}

// Narrator produces briefings and answers.
type Narrator interface {
	Briefing(ctx context.Context, in briefing.Input) *briefing.Narrative
	Ask(ctx context.Context, in briefing.Input, question string) (*briefing.Narrative, error)
}

// PlatformSummary is one row of the platform table.
type PlatformSummary struct {
	Platform            models.Platform  `json:"platform"`
	PriceTier           models.PriceTier `json:"price_tier"`
	Creators            int              `json:"creators"`
	Spent               float64          `json:"spent"`
	Conversions         int64            `json:"conversions"`
	Clicks              int64            `json:"clicks"`
	Views               int64            `json:"views"`
	CPA                 *float64         `json:"cpa"`
	CPC                 *float64         `json:"cpc"`
	CPM                 *float64         `json:"cpm"`
	ConversionRate      *float64         `json:"conversion_rate"`
	ContentDeliveryRate *float64         `json:"content_delivery_rate"`
	ViewsPerDollar      *float64         `json:"views_per_dollar"`
}

func summarize(s analytics.Snapshot) PlatformSummary {
	return PlatformSummary{
		Platform:            s.Platform,
		PriceTier:           s.PriceTier(),
		Creators:            s.Count,
		Spent:               s.Spent,
		Conversions:         s.Conversions,
		Clicks:              s.Clicks,
		Views:               s.Views,
		CPA:                 s.CPA(),
		CPC:                 s.CPC(),
		CPM:                 s.CPM(),
		ConversionRate:      s.ConversionRate(),
		ContentDeliveryRate: s.ContentDeliveryRate(),
		ViewsPerDollar:      s.ViewsPerDollar(),
	}
}

// Overview is the full dashboard for one tenant.
type Overview struct {
	TenantID    string            `json:"tenant_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	Totals      PlatformSummary   `json:"totals"`
	Platforms   []PlatformSummary `json:"platforms"`
	Benchmarks  models.Benchmarks `json:"benchmarks"`
	Score       scoring.Result    `json:"score"`
	Actions     []scoring.Action  `json:"actions"`
	Trends      *trends.Report    `json:"trends"`
}

// Service builds tenant views.
type Service struct {
	identity   IdentityResolver
	tenants    storage.TenantStore
	history    storage.HistoryStore
	benchmarks BenchmarkResolver
	sink       ContributionSink
	engine     *trends.Engine
	narrator   Narrator
	logger     *zap.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// Dependencies wires a Service. Sink and Narrator are optional.
type Dependencies struct {
	Identity   IdentityResolver
	Tenants    storage.TenantStore
	History    storage.HistoryStore
	Benchmarks BenchmarkResolver
	Sink       ContributionSink
	Narrator   Narrator
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		identity:   deps.Identity,
		tenants:    deps.Tenants,
		history:    deps.History,
		benchmarks: deps.Benchmarks,
		sink:       deps.Sink,
		engine:     trends.NewEngine(),
		narrator:   deps.Narrator,
		logger:     logger,
		metrics:    deps.Metrics,
		now:        time.Now,
	}
}

// Overview computes the dashboard. Only identity and creator-load failures
// are returned; benchmark and history problems degrade to defaults.
func (s *Service) Overview(ctx context.Context, rawTenantID string) (*Overview, error) {
	tenantID, err := s.identity.Canonical(ctx, rawTenantID)
	if err != nil {
		return nil, err
	}

	creators, err := s.tenants.LoadCreators(ctx, tenantID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.recordLoad("not_found")
			return nil, fmt.Errorf("%w: %s", ErrTenantNotFound, tenantID)
		}
		s.recordLoad("error")
		s.logger.Error("Failed to load tenant creators", zap.String("tenant_id", tenantID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrTenantData, err)
	}
	if len(creators) == 0 {
		s.recordLoad("not_found")
		return nil, fmt.Errorf("%w: %s", ErrTenantNotFound, tenantID)
	}
	s.recordLoad("ok")

	now := s.now()
	breakdown := analytics.Aggregate(creators)
	data := scoring.TenantData{Breakdown: breakdown, Creators: creators}

	var tier models.PriceTier
	platform := breakdown.DominantPlatform()
	if snap, ok := breakdown.Platform(platform); ok {
		tier = snap.PriceTier()
	}
	bench := s.benchmarks.Resolve(ctx, platform, tier)

	result := scoring.CalculateScore(data, bench)
	if s.metrics != nil {
		s.metrics.RecordScore(result.Score)
	}

	if s.sink != nil {
		s.sink.Submit(tenantID, breakdown)
	}

	report := s.loadTrends(ctx, tenantID, now)

	ov := &Overview{
		TenantID:    tenantID,
		GeneratedAt: now,
		Totals:      summarize(breakdown.Totals),
		Platforms:   make([]PlatformSummary, 0, len(breakdown.Platforms)),
		Benchmarks:  bench,
		Score:       result,
		Actions:     scoring.RecommendActions(data, result, report),
		Trends:      report,
	}
	for _, snap := range breakdown.Sorted() {
		ov.Platforms = append(ov.Platforms, summarize(snap))
	}
	return ov, nil
}

// Trends computes the trend report alone. It never fails after identity
// resolution.
func (s *Service) Trends(ctx context.Context, rawTenantID string) (*trends.Report, error) {
	tenantID, err := s.identity.Canonical(ctx, rawTenantID)
	if err != nil {
		return nil, err
	}
	return s.loadTrends(ctx, tenantID, s.now()), nil
}

func (s *Service) loadTrends(ctx context.Context, tenantID string, now time.Time) *trends.Report {
	if s.history == nil {
		return trends.EmptyReport(now)
	}
	h, err := s.history.LoadHistory(ctx, tenantID, now)
	if err != nil {
		s.logger.Warn("Failed to load tenant history, serving empty trends",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
		return trends.EmptyReport(now)
	}
	return s.engine.Compute(now, h)
}

// Briefing returns the tenant's narrative briefing.
func (s *Service) Briefing(ctx context.Context, rawTenantID string) (*briefing.Narrative, error) {
	ov, err := s.Overview(ctx, rawTenantID)
	if err != nil {
		return nil, err
	}
	in := ov.input()
	if s.narrator == nil {
		return &briefing.Narrative{Text: briefing.FallbackBriefing(in), Source: briefing.SourceFallback, GeneratedAt: ov.GeneratedAt}, nil
	}
	return s.narrator.Briefing(ctx, in), nil
}

// Ask answers a question about the tenant.
func (s *Service) Ask(ctx context.Context, rawTenantID, question string) (*briefing.Narrative, error) {
	if strings.TrimSpace(question) == "" {
		return nil, briefing.ErrEmptyQuestion
	}
	ov, err := s.Overview(ctx, rawTenantID)
	if err != nil {
		return nil, err
	}
	in := ov.input()
	if s.narrator == nil {
		return &briefing.Narrative{Text: briefing.FallbackAnswer(in), Source: briefing.SourceFallback, GeneratedAt: ov.GeneratedAt}, nil
	}
	return s.narrator.Ask(ctx, in, question)
}

func (ov *Overview) input() briefing.Input {
	return briefing.Input{
		TenantID:   ov.TenantID,
		Score:      ov.Score,
		Actions:    ov.Actions,
		Report:     ov.Trends,
		Benchmarks: ov.Benchmarks,
	}
}

func (s *Service) recordLoad(result string) {
	if s.metrics != nil {
		s.metrics.RecordTenantLoad(result)
	}
}
