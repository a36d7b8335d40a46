package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for creatorpulse.
type Metrics struct {
	// Benchmark pool
	Contributions      *prometheus.CounterVec
	ContributionQueue  prometheus.Gauge
	SegmentRefreshes   *prometheus.CounterVec
	RefreshDuration    prometheus.Histogram
	BenchmarkResolves  *prometheus.CounterVec
	BenchmarkCacheHits *prometheus.CounterVec

	// Narrative
	Briefings  *prometheus.CounterVec
	LLMLatency *prometheus.HistogramVec

	// Request path
	TenantLoads   *prometheus.CounterVec
	HealthScores  prometheus.Histogram
	RateLimitHits *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg. A nil reg falls
// back to the default registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Contributions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "benchmark_contributions_total",
				Help:      "Benchmark contribution attempts by outcome",
			},
			[]string{"result"},
		),
		ContributionQueue: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "benchmark_contribution_queue_depth",
				Help:      "Contribution jobs waiting for a worker",
			},
		),
		SegmentRefreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "benchmark_segment_refreshes_total",
				Help:      "Segment recomputations by outcome",
			},
			[]string{"result"},
		),
		RefreshDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "benchmark_refresh_duration_seconds",
				Help:      "Wall time of a full benchmark refresh cycle",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		BenchmarkResolves: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "benchmark_resolutions_total",
				Help:      "Benchmark lookups by the fallback level that answered",
			},
			[]string{"level"},
		),
		BenchmarkCacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "benchmark_cache_lookups_total",
				Help:      "In-process benchmark cache lookups",
			},
			[]string{"hit"},
		),
		Briefings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "briefings_total",
				Help:      "Narratives served by source",
			},
			[]string{"kind", "source"},
		),
		LLMLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "llm_request_duration_seconds",
				Help:      "Text generation latency",
				Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
			},
			[]string{"status"},
		),
		TenantLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tenant_loads_total",
				Help:      "Tenant data loads by outcome",
			},
			[]string{"result"},
		),
		HealthScores: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "health_score",
				Help:      "Distribution of computed health scores",
				Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
			},
		),
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Requests rejected by the rate limiter",
			},
			[]string{"class"},
		),
	}
}

// Handler returns the Prometheus metrics HTTP handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordContribution records the outcome of one contribution attempt.
func (m *Metrics) RecordContribution(result string) {
	m.Contributions.WithLabelValues(result).Inc()
}

// SetQueueDepth updates the contribution backlog gauge.
func (m *Metrics) SetQueueDepth(n int) {
	m.ContributionQueue.Set(float64(n))
}

// RecordSegmentRefresh records one segment's refresh outcome.
func (m *Metrics) RecordSegmentRefresh(result string) {
	m.SegmentRefreshes.WithLabelValues(result).Inc()
}

// RecordRefresh records the duration of a refresh cycle.
func (m *Metrics) RecordRefresh(d time.Duration) {
	m.RefreshDuration.Observe(d.Seconds())
}

// RecordResolve records which fallback level served a benchmark lookup.
func (m *Metrics) RecordResolve(level string) {
	m.BenchmarkResolves.WithLabelValues(level).Inc()
}

// RecordCacheLookup records an in-process cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	label := "false"
	if hit {
		label = "true"
	}
	m.BenchmarkCacheHits.WithLabelValues(label).Inc()
}

// RecordBriefing records a served narrative.
func (m *Metrics) RecordBriefing(kind, source string) {
	m.Briefings.WithLabelValues(kind, source).Inc()
}

// RecordLLM records a text generation call.
func (m *Metrics) RecordLLM(status string, latency time.Duration) {
	m.LLMLatency.WithLabelValues(status).Observe(latency.Seconds())
}

// RecordTenantLoad records a tenant data load.
func (m *Metrics) RecordTenantLoad(result string) {
	m.TenantLoads.WithLabelValues(result).Inc()
}

// RecordScore records a computed health score.
func (m *Metrics) RecordScore(score int) {
	m.HealthScores.Observe(float64(score))
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(class string) {
	m.RateLimitHits.WithLabelValues(class).Inc()
}
