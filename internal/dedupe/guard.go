package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/streakdhq/streakd/internal/date"
	logpkg "github.com/streakdhq/streakd/internal/logger"
)

// DefaultTTL bounds how long a refresh claim can outlive a crashed worker.
const DefaultTTL = 2 * time.Minute

// Guard is a best-effort single-flight gate for streak refreshes, keyed by
// (user, day). It collapses bursts of identical refresh jobs; it is never
// allowed to block a refresh, so any Redis failure reads as "acquired".
// Refreshes are idempotent, so a false positive here only costs extra work.
type Guard struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewGuard creates a refresh guard backed by Redis. A nil logger disables
// guard logging.
func NewGuard(redisURL string, ttl time.Duration, logger *zap.Logger) (*Guard, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{
		client: redis.NewClient(opts),
		ttl:    ttl,
		logger: logger,
	}, nil
}

func (g *Guard) key(userID uuid.UUID, day date.Day) string {
	return fmt.Sprintf("streakd:refresh:%s:%s", userID, day)
}

// TryAcquire claims the (user, day) refresh slot. It returns false only when
// another worker demonstrably holds the slot; Redis errors return true.
func (g *Guard) TryAcquire(ctx context.Context, userID uuid.UUID, day date.Day) bool {
	ok, err := g.client.SetNX(ctx, g.key(userID, day), "1", g.ttl).Result()
	if err != nil {
		g.logger.Warn("refresh_guard_unavailable",
			zap.String("user_id", logpkg.SanitizeUserID(userID.String())),
			zap.String("day", day.String()),
			zap.Error(err),
		)
		return true
	}
	return ok
}

// Release drops the claim so a retry of a failed refresh is not suppressed.
func (g *Guard) Release(ctx context.Context, userID uuid.UUID, day date.Day) {
	if err := g.client.Del(ctx, g.key(userID, day)).Err(); err != nil {
		g.logger.Warn("refresh_guard_release_failed",
			zap.String("user_id", logpkg.SanitizeUserID(userID.String())),
			zap.String("day", day.String()),
			zap.Error(err),
		)
	}
}

// Close releases the underlying Redis connection.
func (g *Guard) Close() error {
	return g.client.Close()
}
