package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/radiusdt/creatorpulse/internal/benchmark"
	"github.com/radiusdt/creatorpulse/internal/briefing"
	"github.com/radiusdt/creatorpulse/internal/config"
	"github.com/radiusdt/creatorpulse/internal/dashboard"
	"github.com/radiusdt/creatorpulse/internal/database"
	"github.com/radiusdt/creatorpulse/internal/httpserver"
	"github.com/radiusdt/creatorpulse/internal/identity"
	"github.com/radiusdt/creatorpulse/internal/llm"
	"github.com/radiusdt/creatorpulse/internal/metrics"
	"github.com/radiusdt/creatorpulse/internal/middleware"
	"github.com/radiusdt/creatorpulse/internal/storage"
	"go.uber.org/zap"
)

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// Can't use logger yet, fall back to standard log
		panic("failed to load config: " + err.Error())
	}

	logger, err := middleware.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("starting creatorpulse",
		zap.String("env", cfg.Server.Env),
		zap.String("addr", cfg.Server.Addr),
		zap.String("benchmark_backend", cfg.Benchmark.Backend),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics(cfg.Metrics.Namespace, nil)
	}

	conns := connect(ctx, cfg, logger)
	defer conns.Close()
	stores := conns.Stores(cfg, logger)

	// Benchmark pool
	resolver, err := benchmark.NewResolver(stores.Segments, cfg.Benchmark.CacheTTL, logger, m)
	if err != nil {
		logger.Fatal("failed to create benchmark resolver", zap.Error(err))
	}
	defer resolver.Close()

	contributor := benchmark.NewContributor(stores.Contributions, stores.Guard, nil, logger, m, benchmark.ContributorConfig{
		Workers:   cfg.Benchmark.ContributionWorkers,
		QueueSize: cfg.Benchmark.ContributionQueue,
	})
	contributor.Start()

	refresher := benchmark.NewRefresher(stores.Contributions, stores.Segments, cfg.Benchmark.Retention, resolver, logger, m)
	scheduler := benchmark.NewScheduler(refresher, cfg.Benchmark.RefreshInterval, cfg.Benchmark.RefreshOnStart, logger)
	scheduler.Start()

	// Narratives
	var generator llm.TextGenerator
	if cfg.LLMAvailable() {
		generator = llm.NewAnthropicClient(llm.AnthropicConfig{
			APIKey:    cfg.LLM.APIKey,
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
		})
	} else {
		logger.Warn("LLM not configured, briefings use deterministic fallbacks")
	}
	narrator := briefing.NewService(generator, stores.BriefingCache, briefing.Config{
		Timeout:   cfg.LLM.Timeout,
		CacheTTL:  cfg.Briefing.CacheTTL,
		MaxTokens: cfg.LLM.MaxTokens,
	}, logger, m)
	if mc, ok := stores.BriefingCache.(*briefing.MemoryCache); ok {
		defer mc.Close()
	}

	dash := dashboard.NewService(dashboard.Dependencies{
		Identity:   identity.NewResolver(stores.Aliases, logger),
		Tenants:    stores.Tenants,
		History:    stores.History,
		Benchmarks: resolver,
		Sink:       contributor,
		Narrator:   narrator,
		Logger:     logger,
		Metrics:    m,
	})

	handler := httpserver.NewServer(&httpserver.Dependencies{
		Tenants:    dash,
		Benchmarks: resolver,
		Refresher:  refresher,
		Checks:     conns.Checks(),
		Config:     cfg,
		Logger:     logger,
		Metrics:    m,
	})

	// Apply middleware chain (order matters: outermost first)
	// Recovery -> RequestID -> Logging -> RateLimit -> Auth -> Handler
	recoveryMW := middleware.NewRecoveryMiddleware(logger)
	requestIDMW := middleware.NewRequestIDMiddleware()
	loggingMW := middleware.NewLoggingMiddleware(logger)
	rateLimitMW := middleware.NewRateLimitMiddleware(cfg.RateLimit, logger, m)
	authMW := middleware.NewAuthMiddleware(cfg.Auth, logger)

	finalHandler := recoveryMW.Handler(
		requestIDMW.Handler(
			loggingMW.Handler(
				rateLimitMW.Handler(
					authMW.Handler(handler),
				),
			),
		),
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           finalHandler,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       5 * time.Second,
		// Briefings may wait on the text generator.
		WriteTimeout:   cfg.LLM.Timeout + 10*time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.Info("HTTP server starting", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Start rate limiter cleanup goroutine
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rateLimitMW.CleanupClientLimiters(time.Hour)
			case <-ctx.Done():
				return
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	// Stop background work after the last request has been served so queued
	// contributions are drained.
	scheduler.Stop()
	contributor.Stop()
	cancel()

	logger.Info("server stopped")
}

// connections holds whichever backends answered at startup.
type connections struct {
	postgres   *database.PostgresDB
	redis      *database.RedisDB
	clickhouse *database.ClickHouseDB
}

// connect opens every configured backend. Unreachable ones are logged and
// left nil so the service can run on in-memory stores.
func connect(ctx context.Context, cfg *config.Config, logger *zap.Logger) *connections {
	c := &connections{}

	db, err := database.NewPostgresDB(ctx, cfg.Database, logger)
	if err != nil {
		logger.Warn("PostgreSQL not available, using in-memory storage", zap.Error(err))
	} else {
		c.postgres = db
	}

	rdb, err := database.NewRedisDB(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis not available, using in-process guard and cache", zap.Error(err))
	} else {
		c.redis = rdb
	}

	if cfg.ClickHouse.Enabled {
		ch, err := database.NewClickHouseDB(ctx, cfg.ClickHouse, logger)
		if err != nil {
			logger.Warn("ClickHouse not available, contributions fall back", zap.Error(err))
		} else {
			c.clickhouse = ch
		}
	}

	return c
}

// Close closes every open backend.
func (c *connections) Close() {
	if c.clickhouse != nil {
		_ = c.clickhouse.Close()
	}
	if c.redis != nil {
		_ = c.redis.Close()
	}
	if c.postgres != nil {
		c.postgres.Close()
	}
}

// Checks exposes a health check per connected backend.
func (c *connections) Checks() map[string]httpserver.HealthCheck {
	checks := make(map[string]httpserver.HealthCheck)
	if c.postgres != nil {
		checks["postgres"] = c.postgres.Health
	}
	if c.redis != nil {
		checks["redis"] = c.redis.Health
	}
	if c.clickhouse != nil {
		checks["clickhouse"] = c.clickhouse.Health
	}
	return checks
}

type stores struct {
	Aliases       identity.AliasStore
	Tenants       storage.TenantStore
	History       storage.HistoryStore
	Contributions storage.ContributionStore
	Segments      storage.SegmentStore
	Guard         storage.ContributionGuard
	BriefingCache briefing.Cache
}

// Stores picks a backend per concern, preferring the connected databases.
func (c *connections) Stores(cfg *config.Config, logger *zap.Logger) stores {
	var s stores

	if c.postgres != nil {
		tenants := storage.NewPostgresTenantStore(c.postgres.Pool)
		bench := storage.NewPostgresBenchmarkStore(c.postgres.Pool)
		s.Aliases = identity.NewPostgresAliasStore(c.postgres.Pool)
		s.Tenants = tenants
		s.History = tenants
		s.Contributions = bench
		s.Segments = bench
	} else {
		tenants := storage.NewInMemoryTenantStore()
		bench := storage.NewInMemoryBenchmarkStore()
		s.Aliases = identity.NewInMemoryAliasStore()
		s.Tenants = tenants
		s.History = tenants
		s.Contributions = bench
		s.Segments = bench
	}

	if cfg.Benchmark.Backend == "clickhouse" {
		if c.clickhouse != nil {
			s.Contributions = storage.NewClickHouseContributionStore(c.clickhouse.Conn)
		} else {
			logger.Warn("benchmark backend is clickhouse but it is unreachable, using fallback contribution store")
		}
	}

	if c.redis != nil {
		s.Guard = storage.NewRedisContributionGuard(c.redis.Client)
		s.BriefingCache = briefing.NewRedisCache(c.redis.Client)
	} else {
		s.Guard = storage.NewInMemoryContributionGuard()
		cache, err := briefing.NewMemoryCache()
		if err != nil {
			logger.Warn("failed to create in-process briefing cache, caching disabled", zap.Error(err))
		} else {
			s.BriefingCache = cache
		}
	}

	return s
}
