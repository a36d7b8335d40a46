package benchmark

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/radiusdt/creatorpulse/internal/analytics"
	"github.com/radiusdt/creatorpulse/internal/models"
	"github.com/radiusdt/creatorpulse/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func roster(p models.Platform, n int, spent float64, conversions int64) []models.CreatorRecord {
	out := make([]models.CreatorRecord, n)
	for i := range out {
		out[i] = models.CreatorRecord{
			ID:           string(p) + "-" + string(rune('a'+i)),
			Platform:     p,
			Spent:        spent,
			Conversions:  conversions,
			Clicks:       100,
			Views:        20000,
			ContentCount: 1,
		}
	}
	return out
}

func tenant(groups ...[]models.CreatorRecord) *analytics.Breakdown {
	var all []models.CreatorRecord
	for _, g := range groups {
		all = append(all, g...)
	}
	return analytics.Aggregate(all)
}

func newTestContributor(store storage.ContributionStore, guard storage.ContributionGuard) *Contributor {
	return NewContributor(store, guard, NewNoiser(rand.New(rand.NewSource(1))), zap.NewNop(), nil,
		ContributorConfig{Workers: 1, QueueSize: 8, Timeout: time.Second})
}

func TestContribute_CohortGate(t *testing.T) {
	tests := []struct {
		name     string
		tenant   *analytics.Breakdown
		expected int
	}{
		{
			name: "four creators across three converting platforms",
			tenant: tenant(
				roster(models.PlatformYouTube, 2, 100, 2),
				roster(models.PlatformTikTok, 1, 100, 2),
				roster(models.PlatformInstagram, 1, 100, 2),
			),
			expected: 0,
		},
		{
			name:     "five creators on one converting platform",
			tenant:   tenant(roster(models.PlatformYouTube, 5, 100, 2)),
			expected: 0,
		},
		{
			name: "two converting platforms with three creators each",
			tenant: tenant(
				roster(models.PlatformYouTube, 3, 100, 2),
				roster(models.PlatformTikTok, 3, 100, 2),
			),
			expected: 2,
		},
		{
			name: "five creators, only one platform large enough",
			tenant: tenant(
				roster(models.PlatformYouTube, 3, 100, 2),
				roster(models.PlatformTikTok, 2, 100, 2),
			),
			expected: 1,
		},
		{
			name: "platform outside the allow-list",
			tenant: tenant(
				roster(models.PlatformYouTube, 3, 100, 2),
				roster("Kick", 3, 100, 2),
			),
			expected: 1,
		},
		{
			name: "platform with neither cpa nor conversion rate",
			tenant: tenant(
				roster(models.PlatformYouTube, 3, 100, 2),
				roster(models.PlatformTikTok, 3, 100, 2),
				[]models.CreatorRecord{
					{ID: "ig-1", Platform: models.PlatformInstagram},
					{ID: "ig-2", Platform: models.PlatformInstagram},
					{ID: "ig-3", Platform: models.PlatformInstagram},
				},
			),
			expected: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewInMemoryBenchmarkStore()
			c := newTestContributor(store, nil)

			n, err := c.Contribute(context.Background(), "tenant-1", tt.tenant)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, n)
			assert.Len(t, store.Contributions(), tt.expected)
		})
	}
}

func TestContribute_RowsAreCoarsenedAndNoised(t *testing.T) {
	store := storage.NewInMemoryBenchmarkStore()
	c := newTestContributor(store, nil)

	b := tenant(
		roster(models.PlatformYouTube, 3, 2500, 50),
		roster(models.PlatformTikTok, 3, 120, 4),
	)
	_, err := c.Contribute(context.Background(), "tenant-1", b)
	require.NoError(t, err)

	rows := store.Contributions()
	require.Len(t, rows, 2)

	byPlatform := map[models.Platform]models.Contribution{}
	for _, r := range rows {
		byPlatform[r.Platform] = r
		assert.NotEmpty(t, r.ID)
		assert.False(t, r.RecordedAt.IsZero())
	}

	yt := byPlatform[models.PlatformYouTube]
	assert.Equal(t, models.TierLarge, yt.PriceTier)
	require.NotNil(t, yt.CPA)
	assert.InDelta(t, 50, *yt.CPA, 5+2.5)
	assert.Zero(t, int64(*yt.CPA)%5, "cpa is bucketed to $5")

	tt := byPlatform[models.PlatformTikTok]
	assert.Equal(t, models.TierSmall, tt.PriceTier)
}

func TestContribute_GuardThrottlesRepeatSubmissions(t *testing.T) {
	store := storage.NewInMemoryBenchmarkStore()
	c := newTestContributor(store, storage.NewInMemoryContributionGuard())
	b := tenant(
		roster(models.PlatformYouTube, 3, 100, 2),
		roster(models.PlatformTikTok, 3, 100, 2),
	)

	first, err := c.Contribute(context.Background(), "tenant-1", b)
	require.NoError(t, err)
	second, err := c.Contribute(context.Background(), "tenant-1", b)
	require.NoError(t, err)
	other, err := c.Contribute(context.Background(), "tenant-2", b)
	require.NoError(t, err)

	assert.Equal(t, 2, first)
	assert.Equal(t, 0, second)
	assert.Equal(t, 2, other)
}

type failingGuard struct{}

func (failingGuard) Acquire(context.Context, string, models.Platform, time.Time) (bool, error) {
	return false, errors.New("redis down")
}

func (failingGuard) Release(context.Context, string, models.Platform, time.Time) error {
	return errors.New("redis down")
}

func TestContribute_GuardErrorSkipsContribution(t *testing.T) {
	store := storage.NewInMemoryBenchmarkStore()
	c := newTestContributor(store, failingGuard{})

	n, err := c.Contribute(context.Background(), "tenant-1", tenant(
		roster(models.PlatformYouTube, 3, 100, 2),
		roster(models.PlatformTikTok, 3, 100, 2),
	))

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, store.Contributions())
}

type funcContributionStore struct {
	insert func(ctx context.Context, rows []models.Contribution) error
}

func (s *funcContributionStore) InsertContributions(ctx context.Context, rows []models.Contribution) error {
	return s.insert(ctx, rows)
}

func (s *funcContributionStore) ComputeSegment(ctx context.Context, f models.SegmentFilter, since time.Time) (*models.Segment, error) {
	return nil, errors.New("not implemented")
}

func TestContribute_FailedInsertReleasesGuard(t *testing.T) {
	failing := true
	var stored int
	store := &funcContributionStore{insert: func(ctx context.Context, rows []models.Contribution) error {
		if failing {
			return errors.New("connection reset")
		}
		stored += len(rows)
		return nil
	}}
	c := newTestContributor(store, storage.NewInMemoryContributionGuard())
	b := tenant(
		roster(models.PlatformYouTube, 3, 100, 2),
		roster(models.PlatformTikTok, 3, 100, 2),
	)

	n, err := c.Contribute(context.Background(), "tenant-1", b)
	require.Error(t, err)
	assert.Zero(t, n)

	failing = false
	n, err = c.Contribute(context.Background(), "tenant-1", b)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, stored)

	n, err = c.Contribute(context.Background(), "tenant-1", b)
	require.NoError(t, err)
	assert.Zero(t, n, "a stored sample still holds its slot")
}

func TestSubmit_DoesNotWaitForTheWrite(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	var written int

	store := &funcContributionStore{insert: func(ctx context.Context, rows []models.Contribution) error {
		<-release
		mu.Lock()
		written += len(rows)
		mu.Unlock()
		return nil
	}}

	c := newTestContributor(store, nil)
	c.Start()

	done := make(chan struct{})
	go func() {
		c.Submit("tenant-1", tenant(
			roster(models.PlatformYouTube, 3, 100, 2),
			roster(models.PlatformTikTok, 3, 100, 2),
		))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit blocked on the store")
	}

	close(release)
	c.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, written)
}

func TestSubmit_StoreFailureIsInvisible(t *testing.T) {
	store := &funcContributionStore{insert: func(context.Context, []models.Contribution) error {
		return errors.New("disk full")
	}}
	c := newTestContributor(store, nil)
	c.Start()

	assert.NotPanics(t, func() {
		c.Submit("tenant-1", tenant(
			roster(models.PlatformYouTube, 3, 100, 2),
			roster(models.PlatformTikTok, 3, 100, 2),
		))
	})
	c.Stop()

	assert.NotPanics(t, func() { c.Submit("tenant-1", nil) }, "submitting after stop is dropped")
}

func TestSubmit_StorePanicIsContained(t *testing.T) {
	store := &funcContributionStore{insert: func(context.Context, []models.Contribution) error {
		panic("boom")
	}}
	c := newTestContributor(store, nil)
	c.Start()

	c.Submit("tenant-1", tenant(
		roster(models.PlatformYouTube, 3, 100, 2),
		roster(models.PlatformTikTok, 3, 100, 2),
	))

	assert.NotPanics(t, c.Stop)
}
