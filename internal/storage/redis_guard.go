package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/radiusdt/creatorpulse/internal/models"
	"github.com/redis/go-redis/v9"
)

// GuardTTL outlives the observation day so late submissions are still
// deduplicated across the UTC boundary. A slot whose insert failed is
// released; if the release fails too, that day's sample is lost.
const GuardTTL = 36 * time.Hour

// RedisContributionGuard implements ContributionGuard with SET NX keys shared
// by every replica.
type RedisContributionGuard struct {
	client *redis.Client
}

// NewRedisContributionGuard creates a new Redis-backed guard.
func NewRedisContributionGuard(client *redis.Client) *RedisContributionGuard {
	return &RedisContributionGuard{client: client}
}

// Acquire claims the (tenant, platform, day) slot. Redis errors are returned
// with false, so callers skip the contribution.
func (g *RedisContributionGuard) Acquire(ctx context.Context, tenantID string, platform models.Platform, day time.Time) (bool, error) {
	ok, err := g.client.SetNX(ctx, guardKey(tenantID, platform, day), 1, GuardTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire contribution slot: %w", err)
	}
	return ok, nil
}

func (g *RedisContributionGuard) Release(ctx context.Context, tenantID string, platform models.Platform, day time.Time) error {
	if err := g.client.Del(ctx, guardKey(tenantID, platform, day)).Err(); err != nil {
		return fmt.Errorf("failed to release contribution slot: %w", err)
	}
	return nil
}

// guardKey never embeds the raw tenant id.
func guardKey(tenantID string, platform models.Platform, day time.Time) string {
	sum := sha256.Sum256([]byte(tenantID))
	return fmt.Sprintf("bench:contrib:%s:%s:%s",
		hex.EncodeToString(sum[:12]),
		platform,
		day.UTC().Format("2006-01-02"),
	)
}
