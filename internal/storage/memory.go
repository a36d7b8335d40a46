package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/radiusdt/creatorpulse/internal/models"
	"github.com/radiusdt/creatorpulse/internal/stats"
)

// In-memory implementations

// InMemoryBenchmarkStore implements ContributionStore and SegmentStore.
type InMemoryBenchmarkStore struct {
	mu            sync.RWMutex
	contributions []models.Contribution
	segments      map[string]*models.Segment
	now           func() time.Time
}

func NewInMemoryBenchmarkStore() *InMemoryBenchmarkStore {
	return &InMemoryBenchmarkStore{
		segments: make(map[string]*models.Segment),
		now:      time.Now,
	}
}

func (s *InMemoryBenchmarkStore) InsertContributions(ctx context.Context, rows []models.Contribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contributions = append(s.contributions, rows...)
	return nil
}

func (s *InMemoryBenchmarkStore) ComputeSegment(ctx context.Context, filter models.SegmentFilter, since time.Time) (*models.Segment, error) {
	s.mu.RLock()
	matched := make([]models.Contribution, 0, len(s.contributions))
	for _, c := range s.contributions {
		if c.RecordedAt.After(since) && filter.Matches(c) {
			matched = append(matched, c)
		}
	}
	s.mu.RUnlock()

	return stats.ComputeSegment(filter.Name(), matched, s.now()), nil
}

// Contributions returns a copy of every stored sample.
func (s *InMemoryBenchmarkStore) Contributions() []models.Contribution {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Contribution, len(s.contributions))
	copy(out, s.contributions)
	return out
}

func (s *InMemoryBenchmarkStore) UpsertSegment(ctx context.Context, seg *models.Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *seg
	s.segments[seg.Name] = &cp
	return nil
}

func (s *InMemoryBenchmarkStore) GetSegment(ctx context.Context, name string) (*models.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seg, ok := s.segments[name]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *seg
	return &cp, nil
}

func (s *InMemoryBenchmarkStore) ListSegments(ctx context.Context) ([]*models.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Segment, 0, len(s.segments))
	for _, seg := range s.segments {
		cp := *seg
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// InMemoryTenantStore implements TenantStore and HistoryStore.
type InMemoryTenantStore struct {
	mu       sync.RWMutex
	creators map[string][]models.CreatorRecord
	history  map[string]*models.History
}

func NewInMemoryTenantStore() *InMemoryTenantStore {
	return &InMemoryTenantStore{
		creators: make(map[string][]models.CreatorRecord),
		history:  make(map[string]*models.History),
	}
}

// PutCreators replaces the creator rows of a tenant.
func (s *InMemoryTenantStore) PutCreators(tenantID string, creators []models.CreatorRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creators[tenantID] = append([]models.CreatorRecord(nil), creators...)
}

// PutHistory replaces the history of a tenant.
func (s *InMemoryTenantStore) PutHistory(tenantID string, h *models.History) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[tenantID] = h
}

func (s *InMemoryTenantStore) LoadCreators(ctx context.Context, tenantID string) ([]models.CreatorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	creators, ok := s.creators[tenantID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]models.CreatorRecord(nil), creators...), nil
}

func (s *InMemoryTenantStore) LoadHistory(ctx context.Context, tenantID string, now time.Time) (*models.History, error) {
	s.mu.RLock()
	h, ok := s.history[tenantID]
	s.mu.RUnlock()
	if !ok || h == nil {
		return &models.History{}, nil
	}

	since := now.Add(-HistoryLookback)
	creatorSince := now.Add(-CreatorHistoryLookback)

	out := &models.History{}
	for _, d := range h.Conversions {
		if !d.Day.Before(since) && !d.Day.After(now) {
			out.Conversions = append(out.Conversions, d)
		}
	}
	for _, d := range h.Views {
		if !d.Day.Before(since) && !d.Day.After(now) {
			out.Views = append(out.Views, d)
		}
	}
	for _, d := range h.CreatorDays {
		if !d.Day.Before(creatorSince) && !d.Day.After(now) {
			out.CreatorDays = append(out.CreatorDays, d)
		}
	}
	return out, nil
}

// InMemoryContributionGuard implements ContributionGuard for a single process.
type InMemoryContributionGuard struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewInMemoryContributionGuard() *InMemoryContributionGuard {
	return &InMemoryContributionGuard{seen: make(map[string]struct{})}
}

func (g *InMemoryContributionGuard) Acquire(ctx context.Context, tenantID string, platform models.Platform, day time.Time) (bool, error) {
	key := guardKey(tenantID, platform, day)

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.seen[key]; ok {
		return false, nil
	}
	g.seen[key] = struct{}{}
	return true, nil
}

func (g *InMemoryContributionGuard) Release(ctx context.Context, tenantID string, platform models.Platform, day time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, guardKey(tenantID, platform, day))
	return nil
}
