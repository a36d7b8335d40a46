package trends

import (
	"time"

	"github.com/radiusdt/creatorpulse/internal/models"
)

// Comparison holds one window's deltas.
type Comparison struct {
	Conversions Change    `json:"conversions"`
	Clicks      Change    `json:"clicks"`
	Views       Change    `json:"views"`
	Spend       Change    `json:"spend"`
	CPA         CPAChange `json:"cpa"`
}

// Report is the full trend view of a tenant.
type Report struct {
	GeneratedAt time.Time  `json:"generated_at"`
	HasHistory  bool       `json:"has_history"`
	Weekly      Comparison `json:"weekly"`
	Monthly     Comparison `json:"monthly"`
	Yearly      Comparison `json:"yearly"`
	Momentum    Momentum   `json:"momentum"`
	Highlights  []string   `json:"highlights"`
	Summary     string     `json:"summary"`
}

// Engine computes trend reports.
type Engine struct{}

// NewEngine creates a trend engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Compute builds the report for history as of now. A nil or empty history
// yields a flat report flagged HasHistory=false.
func (e *Engine) Compute(now time.Time, h *models.History) *Report {
	if h == nil {
		h = &models.History{}
	}

	conv := make([]convPoint, 0, len(h.Conversions))
	for _, d := range h.Conversions {
		conv = append(conv, convPoint{
			day:         d.Day,
			conversions: float64(nonNegative(d.Conversions)),
			clicks:      float64(nonNegative(d.Clicks)),
			spend:       nonNegativeFloat(d.Cost),
		})
	}
	views := make([]viewPoint, 0, len(h.Views))
	for _, d := range h.Views {
		views = append(views, viewPoint{day: d.Day, views: float64(nonNegative(d.Views))})
	}

	r := &Report{
		GeneratedAt: now,
		HasHistory:  !h.Empty(),
		Weekly:      compare(Week, conv, views, now),
		Monthly:     compare(Month, conv, views, now),
		Yearly:      compare(Year, conv, views, now),
		Momentum:    ComputeMomentum(h.CreatorDays, now),
	}
	r.Highlights = Highlights(r)
	r.Summary = Summarize(r)
	return r
}

// EmptyReport is the report served when history could not be loaded.
func EmptyReport(now time.Time) *Report {
	return NewEngine().Compute(now, nil)
}

func compare(w Window, conv []convPoint, views []viewPoint, now time.Time) Comparison {
	cur, prev := w.sumWindows(conv, views, now)
	return Comparison{
		Conversions: Delta(cur.conversions, prev.conversions),
		Clicks:      Delta(cur.clicks, prev.clicks),
		Views:       Delta(cur.views, prev.views),
		Spend:       Delta(cur.spend, prev.spend),
		CPA:         CPADelta(cur.spend, cur.conversions, prev.spend, prev.conversions),
	}
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

func nonNegativeFloat(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	return v
}
