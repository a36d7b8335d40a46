package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radiusdt/creatorpulse/internal/benchmark"
	"github.com/radiusdt/creatorpulse/internal/briefing"
	"github.com/radiusdt/creatorpulse/internal/config"
	"github.com/radiusdt/creatorpulse/internal/dashboard"
	"github.com/radiusdt/creatorpulse/internal/identity"
	"github.com/radiusdt/creatorpulse/internal/models"
	"github.com/radiusdt/creatorpulse/internal/storage"
	"github.com/radiusdt/creatorpulse/internal/trends"
)

type brokenTenants struct{}

func (brokenTenants) LoadCreators(ctx context.Context, tenantID string) ([]models.CreatorRecord, error) {
	return nil, errors.New("connection refused")
}

type emptyTenants struct{}

func (emptyTenants) LoadCreators(ctx context.Context, tenantID string) ([]models.CreatorRecord, error) {
	return []models.CreatorRecord{}, nil
}

type stubRefresher struct {
	calls int
}

func (r *stubRefresher) Refresh(ctx context.Context) benchmark.RefreshResult {
	r.calls++
	return benchmark.RefreshResult{Updated: []string{"overall"}}
}

type testServer struct {
	handler   http.Handler
	tenants   *storage.InMemoryTenantStore
	segments  *storage.InMemoryBenchmarkStore
	refresher *stubRefresher
}

func newTestServer(t *testing.T, tenantStore storage.TenantStore) *testServer {
	t.Helper()

	mem := storage.NewInMemoryTenantStore()
	if tenantStore == nil {
		tenantStore = mem
	}
	segments := storage.NewInMemoryBenchmarkStore()
	resolver, err := benchmark.NewResolver(segments, 0, zap.NewNop(), nil)
	require.NoError(t, err)

	svc := dashboard.NewService(dashboard.Dependencies{
		Identity:   identity.NewResolver(identity.NewInMemoryAliasStore(), zap.NewNop()),
		Tenants:    tenantStore,
		History:    mem,
		Benchmarks: resolver,
		Logger:     zap.NewNop(),
	})

	refresher := &stubRefresher{}
	handler := NewServer(&Dependencies{
		Tenants:    svc,
		Benchmarks: resolver,
		Refresher:  refresher,
		Config:     &config.Config{Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"}},
		Logger:     zap.NewNop(),
	})

	return &testServer{handler: handler, tenants: mem, segments: segments, refresher: refresher}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func seedCreators() []models.CreatorRecord {
	var out []models.CreatorRecord
	for i := 0; i < 4; i++ {
		out = append(out, models.CreatorRecord{
			ID: fmt.Sprintf("yt-%d", i), Name: fmt.Sprintf("YT %d", i), Platform: models.PlatformYouTube,
			Spent: 800, Conversions: 40, Clicks: 700, Views: 150000, ContentCount: 2,
		})
	}
	return out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHealth_Degraded(t *testing.T) {
	handler := NewServer(&Dependencies{
		Checks: map[string]HealthCheck{
			"redis":    func(ctx context.Context) error { return errors.New("dial tcp: refused") },
			"postgres": func(ctx context.Context) error { return nil },
		},
		Logger: zap.NewNop(),
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, map[string]string{"redis": "down", "postgres": "up"}, body.Checks)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOverview(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.tenants.PutCreators("tenant-a", seedCreators())

	rec := ts.do(t, http.MethodGet, "/v1/tenants/tenant-a/overview", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var ov dashboard.Overview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ov))
	assert.Equal(t, "tenant-a", ov.TenantID)
	assert.Equal(t, 4, ov.Totals.Creators)
	assert.Equal(t, models.DefaultSegmentName, ov.Benchmarks.Segment)
	require.NotNil(t, ov.Trends)
	assert.False(t, ov.Trends.HasHistory)
}

func TestScore(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.tenants.PutCreators("tenant-a", seedCreators())

	rec := ts.do(t, http.MethodGet, "/v1/tenants/tenant-a/score", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp scoreResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "tenant-a", resp.TenantID)
	assert.GreaterOrEqual(t, resp.Score.Score, 0)
	assert.LessOrEqual(t, resp.Score.Score, 100)
}

func TestTenantErrors(t *testing.T) {
	t.Run("unknown tenant is 404", func(t *testing.T) {
		ts := newTestServer(t, nil)
		rec := ts.do(t, http.MethodGet, "/v1/tenants/nobody/overview", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":"tenant not found"}`, rec.Body.String())
	})

	t.Run("tenant without creator rows is 404", func(t *testing.T) {
		ts := newTestServer(t, emptyTenants{})
		rec := ts.do(t, http.MethodGet, "/v1/tenants/nobody/score", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("store failure is 502", func(t *testing.T) {
		ts := newTestServer(t, brokenTenants{})
		rec := ts.do(t, http.MethodGet, "/v1/tenants/tenant-a/score", "")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("blank tenant id is 400", func(t *testing.T) {
		ts := newTestServer(t, nil)
		rec := ts.do(t, http.MethodGet, "/v1/tenants/%20/overview", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTrends_NeverFailsForUnknownTenant(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/v1/tenants/nobody/trends", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var report trends.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.False(t, report.HasHistory)
	assert.Equal(t, []string{trends.InsufficientHistory}, report.Highlights)
}

func TestBriefing_FallbackWithoutNarrator(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.tenants.PutCreators("tenant-a", seedCreators())

	rec := ts.do(t, http.MethodGet, "/v1/tenants/tenant-a/briefing", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var n briefing.Narrative
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &n))
	assert.Equal(t, briefing.SourceFallback, n.Source)
	assert.Contains(t, n.Text, "/100")
}

func TestAsk(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.tenants.PutCreators("tenant-a", seedCreators())

	rec := ts.do(t, http.MethodPost, "/v1/tenants/tenant-a/ask", `{"question":"Which platform is best?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"source":"fallback"`)

	rec = ts.do(t, http.MethodPost, "/v1/tenants/tenant-a/ask", `{"question":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/v1/tenants/tenant-a/ask", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/v1/tenants/tenant-a/ask", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestBenchmarks(t *testing.T) {
	ts := newTestServer(t, nil)

	cpa := 12.0
	require.NoError(t, ts.segments.UpsertSegment(context.Background(), &models.Segment{
		Name: "platform:TikTok", SampleSize: 30, CPAP50: &cpa,
	}))

	rec := ts.do(t, http.MethodGet, "/v1/benchmarks?platform=tiktok", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var b models.Benchmarks
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	assert.Equal(t, "platform:TikTok", b.Segment)
	assert.Equal(t, 12.0, b.CPAP50)

	rec = ts.do(t, http.MethodGet, "/v1/benchmarks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	assert.Equal(t, models.DefaultSegmentName, b.Segment)

	rec = ts.do(t, http.MethodGet, "/v1/benchmarks?tier=MEDIUM", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestBenchmarks_UnknownPlatformAndTierFallBackToOverall(t *testing.T) {
	ts := newTestServer(t, nil)

	cpa := 25.0
	require.NoError(t, ts.segments.UpsertSegment(context.Background(), &models.Segment{
		Name: models.OverallSegment, SampleSize: 80, CPAP50: &cpa,
	}))

	rec := ts.do(t, http.MethodGet, "/v1/benchmarks?platform=Kick&tier=micro", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var b models.Benchmarks
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	assert.Equal(t, models.OverallSegment, b.Segment)
	assert.Equal(t, 80, b.SampleSize)
	assert.Equal(t, 25.0, b.CPAP50)
}

func TestSegments(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/v1/benchmarks/segments", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestAdminRefresh(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/v1/admin/benchmarks/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, ts.refresher.calls)

	var res benchmark.RefreshResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, []string{"overall"}, res.Updated)
}
