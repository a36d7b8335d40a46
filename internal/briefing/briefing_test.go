package briefing

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radiusdt/creatorpulse/internal/analytics"
	"github.com/radiusdt/creatorpulse/internal/llm"
	"github.com/radiusdt/creatorpulse/internal/metrics"
	"github.com/radiusdt/creatorpulse/internal/models"
	"github.com/radiusdt/creatorpulse/internal/scoring"
	"github.com/radiusdt/creatorpulse/internal/trends"
)

type mockGenerator struct {
	calls        atomic.Int32
	GenerateFunc func(ctx context.Context, req llm.TextGenerationRequest) (*llm.TextGenerationResponse, error)
}

func (m *mockGenerator) GenerateText(ctx context.Context, req llm.TextGenerationRequest) (*llm.TextGenerationResponse, error) {
	m.calls.Add(1)
	return m.GenerateFunc(ctx, req)
}

func replying(text string) *mockGenerator {
	return &mockGenerator{GenerateFunc: func(ctx context.Context, req llm.TextGenerationRequest) (*llm.TextGenerationResponse, error) {
		return &llm.TextGenerationResponse{Text: text}, nil
	}}
}

func testInput(withHistory bool) Input {
	recs := []models.CreatorRecord{
		{ID: "a", Name: "Ana", Platform: models.PlatformYouTube, Spent: 900, Conversions: 0, ContentCount: 1},
		{ID: "b", Name: "Ben", Platform: models.PlatformTikTok, Spent: 300, Conversions: 10, ContentCount: 1},
	}
	data := scoring.TenantData{Breakdown: analytics.Aggregate(recs), Creators: recs}
	result := scoring.CalculateScore(data, models.DefaultBenchmarks())

	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	report := trends.EmptyReport(now)
	if withHistory {
		report = trends.NewEngine().Compute(now, &models.History{Conversions: []models.DailyConversions{
			{Day: now.Add(-24 * time.Hour), Conversions: 15, Cost: 300},
			{Day: now.Add(-9 * 24 * time.Hour), Conversions: 10, Cost: 300},
		}})
	}
	return Input{
		TenantID:   "tenant-a",
		Score:      result,
		Actions:    scoring.RecommendActions(data, result, report),
		Report:     report,
		Benchmarks: models.DefaultBenchmarks(),
	}
}

func TestBriefing_UsesGenerator(t *testing.T) {
	gen := &mockGenerator{GenerateFunc: func(ctx context.Context, req llm.TextGenerationRequest) (*llm.TextGenerationResponse, error) {
		require.Len(t, req.Messages, 1)
		assert.Contains(t, req.Messages[0].Content, "Health score:")
		assert.Contains(t, req.Messages[0].Content, "Conversions up 50% this week")
		assert.Equal(t, briefingSystemPrompt, req.SystemPrompt)
		return &llm.TextGenerationResponse{Text: " All good. "}, nil
	}}
	svc := NewService(gen, nil, Config{Timeout: time.Second}, zap.NewNop(), nil)

	n := svc.Briefing(context.Background(), testInput(true))
	assert.Equal(t, SourceLLM, n.Source)
	assert.Equal(t, "All good.", n.Text)
}

func TestBriefing_FallbackOnError(t *testing.T) {
	gen := &mockGenerator{GenerateFunc: func(ctx context.Context, req llm.TextGenerationRequest) (*llm.TextGenerationResponse, error) {
		return nil, errors.New("API request failed with status 529")
	}}
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics("test", reg)
	svc := NewService(gen, nil, Config{Timeout: time.Second}, zap.NewNop(), m)

	in := testInput(true)
	n := svc.Briefing(context.Background(), in)
	assert.Equal(t, SourceFallback, n.Source)
	assert.Equal(t, FallbackBriefing(in), n.Text)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Briefings.WithLabelValues(KindBriefing, SourceFallback)))
}

func TestBriefing_FallbackOnTimeout(t *testing.T) {
	gen := &mockGenerator{GenerateFunc: func(ctx context.Context, req llm.TextGenerationRequest) (*llm.TextGenerationResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	svc := NewService(gen, nil, Config{Timeout: 20 * time.Millisecond}, zap.NewNop(), nil)

	start := time.Now()
	n := svc.Briefing(context.Background(), testInput(false))
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, SourceFallback, n.Source)
	assert.Contains(t, n.Text, trends.InsufficientHistory)
}

func TestBriefing_EmptyGenerationFallsBack(t *testing.T) {
	svc := NewService(replying("   "), nil, Config{}, nil, nil)
	assert.Equal(t, SourceFallback, svc.Briefing(context.Background(), testInput(true)).Source)

	disabled := NewService(nil, nil, Config{}, nil, nil)
	assert.Equal(t, SourceFallback, disabled.Briefing(context.Background(), testInput(true)).Source)
}

func TestFallbackBriefing_Deterministic(t *testing.T) {
	in := testInput(true)
	text := FallbackBriefing(in)

	assert.Equal(t, text, FallbackBriefing(testInput(true)))
	assert.True(t, strings.HasPrefix(text, "Your health score is "))
	assert.Contains(t, text, in.Report.Summary)
	assert.Contains(t, text, "Next step: "+in.Actions[0].Title)

	noHistory := FallbackBriefing(testInput(false))
	assert.Contains(t, noHistory, trends.InsufficientHistory)
}

func TestBriefing_RedisCache(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	gen := replying("Generated once.")
	svc := NewService(gen, NewRedisCache(client), Config{Timeout: time.Second, CacheTTL: 6 * time.Hour}, zap.NewNop(), nil)
	svc.now = func() time.Time { return time.Date(2024, 6, 30, 8, 0, 0, 0, time.UTC) }

	first := svc.Briefing(context.Background(), testInput(true))
	second := svc.Briefing(context.Background(), testInput(true))

	assert.Equal(t, SourceLLM, first.Source)
	assert.Equal(t, SourceCache, second.Source)
	assert.Equal(t, "Generated once.", second.Text)
	assert.Equal(t, int32(1), gen.calls.Load())

	assert.True(t, s.Exists("briefing:tenant-a:2024-06-30"))
	assert.Equal(t, 6*time.Hour, s.TTL("briefing:tenant-a:2024-06-30"))

	// A new day misses the cache.
	svc.now = func() time.Time { return time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC) }
	assert.Equal(t, SourceLLM, svc.Briefing(context.Background(), testInput(true)).Source)
	assert.Equal(t, int32(2), gen.calls.Load())
}

func TestBriefing_FallbackNotCached(t *testing.T) {
	cache, err := NewMemoryCache()
	require.NoError(t, err)
	defer cache.Close()

	failing := true
	gen := &mockGenerator{GenerateFunc: func(ctx context.Context, req llm.TextGenerationRequest) (*llm.TextGenerationResponse, error) {
		if failing {
			return nil, errors.New("down")
		}
		return &llm.TextGenerationResponse{Text: "Back up."}, nil
	}}
	svc := NewService(gen, cache, Config{Timeout: time.Second, CacheTTL: time.Hour}, zap.NewNop(), nil)

	assert.Equal(t, SourceFallback, svc.Briefing(context.Background(), testInput(true)).Source)
	failing = false
	assert.Equal(t, SourceLLM, svc.Briefing(context.Background(), testInput(true)).Source)
	assert.Equal(t, SourceCache, svc.Briefing(context.Background(), testInput(true)).Source)
}

func TestBriefing_CacheErrorStillGenerates(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: s.Addr(), MaxRetries: -1})
	defer client.Close()
	s.Close()

	svc := NewService(replying("Fresh."), NewRedisCache(client), Config{Timeout: time.Second}, zap.NewNop(), nil)
	n := svc.Briefing(context.Background(), testInput(true))
	assert.Equal(t, SourceLLM, n.Source)
	assert.Equal(t, "Fresh.", n.Text)
}

func TestAsk(t *testing.T) {
	var prompt string
	gen := &mockGenerator{GenerateFunc: func(ctx context.Context, req llm.TextGenerationRequest) (*llm.TextGenerationResponse, error) {
		prompt = req.Messages[0].Content
		return &llm.TextGenerationResponse{Text: "Ana has not converted."}, nil
	}}
	svc := NewService(gen, nil, Config{Timeout: time.Second}, zap.NewNop(), nil)

	n, err := svc.Ask(context.Background(), testInput(true), "  Who is wasting budget?  ")
	require.NoError(t, err)
	assert.Equal(t, SourceLLM, n.Source)
	assert.True(t, strings.HasSuffix(prompt, "Question: Who is wasting budget?"))

	_, err = svc.Ask(context.Background(), testInput(true), " ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestAsk_LongQuestionKeepsValidUTF8(t *testing.T) {
	var prompt string
	gen := &mockGenerator{GenerateFunc: func(ctx context.Context, req llm.TextGenerationRequest) (*llm.TextGenerationResponse, error) {
		prompt = req.Messages[0].Content
		return &llm.TextGenerationResponse{Text: "ok"}, nil
	}}
	svc := NewService(gen, nil, Config{Timeout: time.Second}, zap.NewNop(), nil)

	// "é" is two bytes, so byte MaxQuestionLength lands mid-rune.
	question := "a" + strings.Repeat("é", MaxQuestionLength)
	_, err := svc.Ask(context.Background(), testInput(false), question)
	require.NoError(t, err)

	assert.True(t, utf8.ValidString(prompt))
	asked := prompt[strings.LastIndex(prompt, "Question: ")+len("Question: "):]
	assert.LessOrEqual(t, len(asked), MaxQuestionLength)
	assert.Equal(t, MaxQuestionLength-1, len(asked))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "a", truncate("aé", 2))
	assert.Equal(t, "aé", truncate("aé", 3))
	assert.Equal(t, "", truncate("日本", 2))
}

func TestAsk_Fallback(t *testing.T) {
	svc := NewService(nil, nil, Config{}, zap.NewNop(), nil)

	n, err := svc.Ask(context.Background(), testInput(false), "How are trends?")
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, n.Source)
	assert.Contains(t, n.Text, trends.InsufficientHistory)
}

func TestBuildContext(t *testing.T) {
	text := BuildContext(testInput(false))
	assert.Contains(t, text, "Benchmark: industry defaults (sample 0)")
	assert.Contains(t, text, "CPA: $120.00 vs median $30.00")
	assert.Contains(t, text, "Trends: "+trends.InsufficientHistory)
	assert.Contains(t, text, "Recommended actions:")
}
