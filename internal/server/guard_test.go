package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGuardAttemptFlag(t *testing.T) {
	g := newGuardStore(nil)
	ctx := context.Background()

	assert.False(t, g.AttemptStarted(ctx, "g1"))
	g.MarkAttemptStarted(ctx, "g1")
	assert.True(t, g.AttemptStarted(ctx, "g1"))
	assert.False(t, g.AttemptStarted(ctx, "g2"))
	g.ClearAttempt(ctx, "g1")
	assert.False(t, g.AttemptStarted(ctx, "g1"))
}

func TestGuardManualRetryCooldown(t *testing.T) {
	g := newGuardStore(nil)
	ctx := context.Background()
	cooldown := 30 * time.Second

	base := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	clock := base
	g.now = func() time.Time { return clock }

	assert.Zero(t, g.ManualRetryRemaining(ctx, "g1", cooldown))

	g.RecordManualRetry(ctx, "g1")
	clock = base.Add(10 * time.Second)
	assert.Equal(t, 20*time.Second, g.ManualRetryRemaining(ctx, "g1", cooldown))

	clock = base.Add(31 * time.Second)
	assert.Zero(t, g.ManualRetryRemaining(ctx, "g1", cooldown))

	// Each retry restarts the window.
	g.RecordManualRetry(ctx, "g1")
	clock = clock.Add(time.Second)
	assert.Equal(t, 29*time.Second, g.ManualRetryRemaining(ctx, "g1", cooldown))
}

func TestCooldownErrorRoundsUp(t *testing.T) {
	err := &CooldownError{Remaining: 1500 * time.Millisecond}
	assert.Equal(t, 2, err.RemainingSeconds())
	assert.Equal(t, "retry available in 2 seconds", err.Error())
}
