// Command benchmark-refresh recomputes every benchmark segment once and exits.
// It is meant for an external cron when the in-process scheduler is disabled.
package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/radiusdt/creatorpulse/internal/benchmark"
	"github.com/radiusdt/creatorpulse/internal/config"
	"github.com/radiusdt/creatorpulse/internal/database"
	"github.com/radiusdt/creatorpulse/internal/middleware"
	"github.com/radiusdt/creatorpulse/internal/storage"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := middleware.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer logger.Sync()

	// A run must finish before the next one is due.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Benchmark.RefreshInterval)
	defer cancel()

	// Segments always live in PostgreSQL; an in-memory pool would be empty.
	db, err := database.NewPostgresDB(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to PostgreSQL", zap.Error(err))
	}
	defer db.Close()

	segments := storage.NewPostgresBenchmarkStore(db.Pool)
	var contributions storage.ContributionStore = segments

	if cfg.Benchmark.Backend == "clickhouse" {
		ch, err := database.NewClickHouseDB(ctx, cfg.ClickHouse, logger)
		if err != nil {
			logger.Fatal("failed to connect to ClickHouse", zap.Error(err))
		}
		defer ch.Close()
		contributions = storage.NewClickHouseContributionStore(ch.Conn)
	}

	refresher := benchmark.NewRefresher(contributions, segments, cfg.Benchmark.Retention, nil, logger, nil)
	res := refresher.Refresh(ctx)

	if len(res.Failed) > 0 {
		logger.Error("benchmark refresh finished with failures", zap.Strings("failed", res.Failed))
		logger.Sync()
		os.Exit(1)
	}
}
