package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/radiusdt/creatorpulse/internal/benchmark"
	"github.com/radiusdt/creatorpulse/internal/briefing"
	"github.com/radiusdt/creatorpulse/internal/config"
	"github.com/radiusdt/creatorpulse/internal/dashboard"
	"github.com/radiusdt/creatorpulse/internal/identity"
	"github.com/radiusdt/creatorpulse/internal/metrics"
	"github.com/radiusdt/creatorpulse/internal/models"
	"github.com/radiusdt/creatorpulse/internal/scoring"
	"github.com/radiusdt/creatorpulse/internal/trends"
	"go.uber.org/zap"
)

// maxBodyBytes bounds POST bodies; questions are short.
const maxBodyBytes = 16 << 10

// TenantViews is the tenant-facing read surface.
type TenantViews interface {
	Overview(ctx context.Context, tenantID string) (*dashboard.Overview, error)
	Trends(ctx context.Context, tenantID string) (*trends.Report, error)
	Briefing(ctx context.Context, tenantID string) (*briefing.Narrative, error)
	Ask(ctx context.Context, tenantID, question string) (*briefing.Narrative, error)
}

// BenchmarkLookup serves shared benchmarks.
type BenchmarkLookup interface {
	Resolve(ctx context.Context, platform models.Platform, tier models.PriceTier) models.Benchmarks
	Segments(ctx context.Context) ([]*models.Segment, error)
}

// SegmentRefresher recomputes benchmark segments on demand.
type SegmentRefresher interface {
	Refresh(ctx context.Context) benchmark.RefreshResult
}

// HealthCheck pings one backing store.
type HealthCheck func(ctx context.Context) error

// Dependencies holds all external dependencies for the server.
type Dependencies struct {
	Tenants    TenantViews
	Benchmarks BenchmarkLookup
	Refresher  SegmentRefresher
	Checks     map[string]HealthCheck
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

// Server wraps HTTP handlers around the analytics services.
type Server struct {
	tenants    TenantViews
	benchmarks BenchmarkLookup
	refresher  SegmentRefresher
	checks     map[string]HealthCheck
	logger     *zap.Logger
	config     *config.Config
	metrics    *metrics.Metrics
}

// NewServer constructs a new http.Handler with all routes registered.
func NewServer(deps *Dependencies) http.Handler {
	s := &Server{
		tenants:    deps.Tenants,
		benchmarks: deps.Benchmarks,
		refresher:  deps.Refresher,
		checks:     deps.Checks,
		logger:     deps.Logger,
		config:     deps.Config,
		metrics:    deps.Metrics,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// Health check
	r.Get("/health", s.handleHealth)

	// Prometheus metrics
	if deps.Config != nil && deps.Config.Metrics.Enabled {
		r.Handle(deps.Config.Metrics.Path, metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		// Tenant views
		r.Route("/tenants/{tenantID}", func(r chi.Router) {
			r.Get("/overview", s.handleOverview)
			r.Get("/score", s.handleScore)
			r.Get("/trends", s.handleTrends)
			r.Get("/briefing", s.handleBriefing)
			r.Post("/ask", s.handleAsk)
		})

		// Shared benchmarks
		r.Get("/benchmarks", s.handleBenchmarks)
		r.Get("/benchmarks/segments", s.handleSegments)

		// Admin
		r.Post("/admin/benchmarks/refresh", s.handleRefresh)
	})

	return r
}

// ---- Health Check ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			s.logger.Warn("health check failed", zap.String("backend", name), zap.Error(err))
			checks[name] = "down"
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "up"
	}

	s.jsonStatus(w, code, map[string]any{"status": status, "checks": checks})
}

// ---- Tenant views ----

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := s.tenants.Overview(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		s.tenantError(w, err)
		return
	}
	s.jsonResponse(w, ov)
}

type scoreResponse struct {
	TenantID string           `json:"tenant_id"`
	Score    scoring.Result   `json:"score"`
	Actions  []scoring.Action `json:"actions"`
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	ov, err := s.tenants.Overview(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		s.tenantError(w, err)
		return
	}
	s.jsonResponse(w, scoreResponse{TenantID: ov.TenantID, Score: ov.Score, Actions: ov.Actions})
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	report, err := s.tenants.Trends(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		s.tenantError(w, err)
		return
	}
	s.jsonResponse(w, report)
}

func (s *Server) handleBriefing(w http.ResponseWriter, r *http.Request) {
	n, err := s.tenants.Briefing(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		s.tenantError(w, err)
		return
	}
	s.jsonResponse(w, n)
}

type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return
	}

	n, err := s.tenants.Ask(r.Context(), chi.URLParam(r, "tenantID"), req.Question)
	if err != nil {
		s.tenantError(w, err)
		return
	}
	s.jsonResponse(w, n)
}

// ---- Benchmarks ----

func (s *Server) handleBenchmarks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	platform := models.NormalizePlatform(q.Get("platform"))
	// Unrecognized tiers are lookup misses and fall through to broader segments.
	tier := models.PriceTier(strings.ToLower(strings.TrimSpace(q.Get("tier"))))

	s.jsonResponse(w, s.benchmarks.Resolve(r.Context(), platform, tier))
}

func (s *Server) handleSegments(w http.ResponseWriter, r *http.Request) {
	segments, err := s.benchmarks.Segments(r.Context())
	if err != nil {
		s.logger.Error("failed to list benchmark segments", zap.Error(err))
		s.errorResponse(w, "failed to list segments", http.StatusBadGateway)
		return
	}
	if segments == nil {
		segments = []*models.Segment{}
	}
	s.jsonResponse(w, segments)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresher == nil {
		s.errorResponse(w, "benchmark refresh is not configured", http.StatusServiceUnavailable)
		return
	}
	s.jsonResponse(w, s.refresher.Refresh(r.Context()))
}

// ---- Helper Methods ----

// tenantError maps service errors onto status codes. Only identity, input and
// creator-load failures reach here; everything else degrades inside the
// services.
func (s *Server) tenantError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, identity.ErrEmptyTenantID):
		s.errorResponse(w, "tenant id is required", http.StatusBadRequest)
	case errors.Is(err, briefing.ErrEmptyQuestion):
		s.errorResponse(w, "question is required", http.StatusBadRequest)
	case errors.Is(err, dashboard.ErrTenantNotFound):
		s.errorResponse(w, "tenant not found", http.StatusNotFound)
	case errors.Is(err, dashboard.ErrTenantData):
		s.errorResponse(w, "tenant data unavailable", http.StatusBadGateway)
	default:
		s.logger.Error("request failed", zap.Error(err))
		s.errorResponse(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	s.jsonStatus(w, http.StatusOK, data)
}

func (s *Server) jsonStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, message string, code int) {
	s.jsonStatus(w, code, map[string]string{"error": message})
}
