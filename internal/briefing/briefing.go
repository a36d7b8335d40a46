// Package briefing produces the narrative layer on top of scores and trends.
// Every narrative has a deterministic fallback built from the same structured
// data, so a slow or failing text generator never leaves the caller empty
// handed.
package briefing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/radiusdt/creatorpulse/internal/llm"
	"github.com/radiusdt/creatorpulse/internal/metrics"
	"github.com/radiusdt/creatorpulse/internal/models"
	"github.com/radiusdt/creatorpulse/internal/scoring"
	"github.com/radiusdt/creatorpulse/internal/trends"
)

// Sources of a narrative.
const (
	SourceLLM      = "llm"
	SourceCache    = "cache"
	SourceFallback = "fallback"
)

// Narrative kinds reported in metrics.
const (
	KindBriefing = "briefing"
	KindAnswer   = "answer"
)

// ErrEmptyQuestion is returned by Ask for a blank question.
var ErrEmptyQuestion = errors.New("question is empty")

// MaxQuestionLength bounds the user text embedded in a prompt.
const MaxQuestionLength = 1000

const briefingSystemPrompt = `You are an analyst for an influencer-marketing team.
Write a short briefing (at most 5 sentences) from the data provided.
Lead with the most important problem or win, quote numbers exactly as given,
and end with the single most valuable next step. Do not invent data.`

const askSystemPrompt = `You are an analyst for an influencer-marketing team.
Answer the user's question using only the data provided. If the data cannot
answer it, say so plainly. Keep the answer under 120 words.`

// Input is the structured data a narrative is built from.
type Input struct {
	TenantID   string
	Score      scoring.Result
	Actions    []scoring.Action
	Report     *trends.Report
	Benchmarks models.Benchmarks
}

// Narrative is a generated or fallback text.
type Narrative struct {
	Text        string    `json:"text"`
	Source      string    `json:"source"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Config controls generation.
type Config struct {
	Timeout   time.Duration
	CacheTTL  time.Duration
	MaxTokens int
}

// Service builds briefings and answers.
type Service struct {
	generator llm.TextGenerator
	cache     Cache
	cfg       Config
	logger    *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewService creates a briefing service. A nil generator always serves the
// fallback; a nil cache disables caching.
func NewService(generator llm.TextGenerator, cache Cache, cfg Config, logger *zap.Logger, m *metrics.Metrics) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		generator: generator,
		cache:     cache,
		cfg:       cfg,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// Briefing returns today's briefing for the tenant. Generated briefings are
// cached per tenant per day; fallbacks are not, so the next request retries
// generation.
func (s *Service) Briefing(ctx context.Context, in Input) *Narrative {
	now := s.now()
	key := cacheKey(in.TenantID, now)

	if s.cache != nil && s.generator != nil {
		text, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("Briefing cache read failed", zap.Error(err))
		}
		if ok {
			s.record(KindBriefing, SourceCache)
			return &Narrative{Text: text, Source: SourceCache, GeneratedAt: now}
		}
	}

	text, err := s.generate(ctx, llm.UserPrompt(briefingSystemPrompt, BuildContext(in), s.cfg.MaxTokens))
	if err != nil {
		s.record(KindBriefing, SourceFallback)
		return &Narrative{Text: FallbackBriefing(in), Source: SourceFallback, GeneratedAt: now}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, text, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("Briefing cache write failed", zap.Error(err))
		}
	}
	s.record(KindBriefing, SourceLLM)
	return &Narrative{Text: text, Source: SourceLLM, GeneratedAt: now}
}

// Ask answers a free-form question about the tenant. Only a blank question is
// an error.
func (s *Service) Ask(ctx context.Context, in Input, question string) (*Narrative, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	question = truncate(question, MaxQuestionLength)
	now := s.now()

	prompt := BuildContext(in) + "\nQuestion: " + question
	text, err := s.generate(ctx, llm.UserPrompt(askSystemPrompt, prompt, s.cfg.MaxTokens))
	if err != nil {
		s.record(KindAnswer, SourceFallback)
		return &Narrative{Text: FallbackAnswer(in), Source: SourceFallback, GeneratedAt: now}, nil
	}

	s.record(KindAnswer, SourceLLM)
	return &Narrative{Text: text, Source: SourceLLM, GeneratedAt: now}, nil
}

// generate calls the text generator under the configured timeout.
func (s *Service) generate(ctx context.Context, req llm.TextGenerationRequest) (string, error) {
	if s.generator == nil {
		return "", errors.New("text generation disabled")
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := s.generator.GenerateText(ctx, req)
	latency := time.Since(start)

	status := "ok"
	switch {
	case err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
		status = "timeout"
	case err != nil:
		status = "error"
	case resp == nil || strings.TrimSpace(resp.Text) == "":
		status = "empty"
		err = errors.New("empty generation")
	}
	if s.metrics != nil {
		s.metrics.RecordLLM(status, latency)
	}
	if err != nil {
		s.logger.Warn("Text generation failed, serving fallback",
			zap.String("status", status),
			zap.Duration("latency", latency),
			zap.Error(err),
		)
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

func (s *Service) record(kind, source string) {
	if s.metrics != nil {
		s.metrics.RecordBriefing(kind, source)
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := n
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return s[:i]
}

func cacheKey(tenantID string, now time.Time) string {
	return fmt.Sprintf("%s:%s", tenantID, now.UTC().Format("2006-01-02"))
}
