package server

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	guardAttemptPrefix = "wordparty:genattempt:"
	guardRetryPrefix   = "wordparty:genretry:"
	guardKeyTTL        = 24 * time.Hour
)

// guardStore tracks the generation-attempted flag and the last manual retry
// timestamp per game. With redis configured the flags survive restarts; the
// in-memory fallback keeps the same behavior for a single process. Best
// effort either way: the story-level idempotency check is the real safety
// net.
type guardStore struct {
	redis    *redis.Client
	now      func() time.Time
	mu       sync.Mutex
	attempts map[string]struct{}
	retries  map[string]time.Time
}

func newGuardStore(client *redis.Client) *guardStore {
	return &guardStore{
		redis:    client,
		now:      timeNowUTC,
		attempts: make(map[string]struct{}),
		retries:  make(map[string]time.Time),
	}
}

func (g *guardStore) AttemptStarted(ctx context.Context, gameID string) bool {
	if g.redis != nil {
		exists, err := g.redis.Exists(ctx, guardAttemptPrefix+gameID).Result()
		if err == nil {
			return exists > 0
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.attempts[gameID]
	return ok
}

func (g *guardStore) MarkAttemptStarted(ctx context.Context, gameID string) {
	if g.redis != nil {
		if err := g.redis.Set(ctx, guardAttemptPrefix+gameID, "1", guardKeyTTL).Err(); err == nil {
			return
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.attempts[gameID] = struct{}{}
}

func (g *guardStore) ClearAttempt(ctx context.Context, gameID string) {
	if g.redis != nil {
		_ = g.redis.Del(ctx, guardAttemptPrefix+gameID).Err()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.attempts, gameID)
}

// ManualRetryRemaining returns how long until another manual retry is
// allowed, or zero if one is allowed now.
func (g *guardStore) ManualRetryRemaining(ctx context.Context, gameID string, cooldown time.Duration) time.Duration {
	last, ok := g.lastManualRetry(ctx, gameID)
	if !ok {
		return 0
	}
	elapsed := g.now().Sub(last)
	if elapsed >= cooldown {
		return 0
	}
	return cooldown - elapsed
}

func (g *guardStore) RecordManualRetry(ctx context.Context, gameID string) {
	now := g.now()
	if g.redis != nil {
		if err := g.redis.Set(ctx, guardRetryPrefix+gameID, strconv.FormatInt(now.UnixMilli(), 10), guardKeyTTL).Err(); err == nil {
			return
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.retries[gameID] = now
}

func (g *guardStore) lastManualRetry(ctx context.Context, gameID string) (time.Time, bool) {
	if g.redis != nil {
		raw, err := g.redis.Get(ctx, guardRetryPrefix+gameID).Result()
		if err == nil {
			millis, parseErr := strconv.ParseInt(raw, 10, 64)
			if parseErr == nil {
				return time.UnixMilli(millis).UTC(), true
			}
		} else if err == redis.Nil {
			return time.Time{}, false
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	last, ok := g.retries[gameID]
	return last, ok
}
