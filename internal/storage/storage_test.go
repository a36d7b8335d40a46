package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/radiusdt/creatorpulse/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fp(v float64) *float64 { return &v }

func TestInMemoryBenchmarkStore_ComputeSegmentFiltersAndWindows(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryBenchmarkStore()
	now := time.Now()

	require.NoError(t, store.InsertContributions(ctx, []models.Contribution{
		{Platform: models.PlatformYouTube, PriceTier: models.TierSmall, CPA: fp(10), RecordedAt: now.Add(-time.Hour)},
		{Platform: models.PlatformYouTube, PriceTier: models.TierLarge, CPA: fp(20), RecordedAt: now.Add(-time.Hour)},
		{Platform: models.PlatformTikTok, PriceTier: models.TierSmall, CPA: fp(30), RecordedAt: now.Add(-time.Hour)},
		{Platform: models.PlatformYouTube, PriceTier: models.TierSmall, CPA: fp(99), RecordedAt: now.Add(-100 * 24 * time.Hour)},
	}))

	since := now.Add(-90 * 24 * time.Hour)

	overall, err := store.ComputeSegment(ctx, models.SegmentFilter{}, since)
	require.NoError(t, err)
	assert.Equal(t, "overall", overall.Name)
	assert.Equal(t, 3, overall.SampleSize)

	yt, err := store.ComputeSegment(ctx, models.SegmentFilter{Platform: models.PlatformYouTube}, since)
	require.NoError(t, err)
	assert.Equal(t, 2, yt.SampleSize)
	assert.InDelta(t, 15, *yt.CPAP50, 1e-9)

	ytSmall, err := store.ComputeSegment(ctx, models.SegmentFilter{Platform: models.PlatformYouTube, Tier: models.TierSmall}, since)
	require.NoError(t, err)
	assert.Equal(t, "YouTube:small", ytSmall.Name)
	assert.Equal(t, 1, ytSmall.SampleSize)
}

func TestInMemoryBenchmarkStore_Segments(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryBenchmarkStore()

	_, err := store.GetSegment(ctx, "overall")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.UpsertSegment(ctx, &models.Segment{Name: "overall", SampleSize: 10}))
	require.NoError(t, store.UpsertSegment(ctx, &models.Segment{Name: "overall", SampleSize: 12}))
	require.NoError(t, store.UpsertSegment(ctx, &models.Segment{Name: "tier:small", SampleSize: 11}))

	seg, err := store.GetSegment(ctx, "overall")
	require.NoError(t, err)
	assert.Equal(t, 12, seg.SampleSize)

	all, err := store.ListSegments(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "overall", all[0].Name)
}

func TestInMemoryTenantStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryTenantStore()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.LoadCreators(ctx, "acme")
	assert.ErrorIs(t, err, ErrNotFound)

	store.PutCreators("acme", []models.CreatorRecord{{ID: "c1", Name: "Ana"}})
	creators, err := store.LoadCreators(ctx, "acme")
	require.NoError(t, err)
	assert.Len(t, creators, 1)

	store.PutHistory("acme", &models.History{
		Conversions: []models.DailyConversions{
			{Day: now.AddDate(0, 0, -1), Conversions: 3},
			{Day: now.AddDate(-3, 0, 0), Conversions: 9},
		},
		CreatorDays: []models.CreatorDay{
			{Creator: "Ana", Day: now.AddDate(0, 0, -2), Conversions: 1},
			{Creator: "Ana", Day: now.AddDate(0, 0, -45), Conversions: 1},
		},
	})

	h, err := store.LoadHistory(ctx, "acme", now)
	require.NoError(t, err)
	assert.Len(t, h.Conversions, 1, "rows older than two years are dropped")
	assert.Len(t, h.CreatorDays, 1, "creator rows older than 30 days are dropped")

	empty, err := store.LoadHistory(ctx, "nobody", now)
	require.NoError(t, err)
	assert.True(t, empty.Empty())
}

func TestRedisContributionGuard(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	guard := NewRedisContributionGuard(client)
	ctx := context.Background()
	day := time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)

	ok, err := guard.Acquire(ctx, "tenant-42", models.PlatformYouTube, day)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = guard.Acquire(ctx, "tenant-42", models.PlatformYouTube, day.Add(30*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok, "second claim on the same UTC day is rejected")

	ok, err = guard.Acquire(ctx, "tenant-42", models.PlatformTikTok, day)
	require.NoError(t, err)
	assert.True(t, ok)

	for _, key := range s.Keys() {
		assert.NotContains(t, key, "tenant-42")
		assert.LessOrEqual(t, s.TTL(key), GuardTTL)
		assert.Greater(t, s.TTL(key), time.Duration(0))
	}
}

func TestRedisContributionGuard_Release(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	guard := NewRedisContributionGuard(client)
	ctx := context.Background()
	day := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	ok, err := guard.Acquire(ctx, "tenant-42", models.PlatformYouTube, day)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, guard.Release(ctx, "tenant-42", models.PlatformYouTube, day))
	assert.Empty(t, s.Keys())

	ok, err = guard.Acquire(ctx, "tenant-42", models.PlatformYouTube, day)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisContributionGuard_FailsClosed(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: s.Addr(), MaxRetries: -1})
	defer client.Close()
	s.Close()

	ok, err := NewRedisContributionGuard(client).Acquire(context.Background(), "t", models.PlatformYouTube, time.Now())

	assert.Error(t, err)
	assert.False(t, ok)
}

func TestInMemoryContributionGuard(t *testing.T) {
	guard := NewInMemoryContributionGuard()
	ctx := context.Background()
	day := time.Now()

	ok, _ := guard.Acquire(ctx, "t", models.PlatformTwitch, day)
	assert.True(t, ok)
	ok, _ = guard.Acquire(ctx, "t", models.PlatformTwitch, day)
	assert.False(t, ok)

	require.NoError(t, guard.Release(ctx, "t", models.PlatformTwitch, day))
	ok, _ = guard.Acquire(ctx, "t", models.PlatformTwitch, day)
	assert.True(t, ok)
}
