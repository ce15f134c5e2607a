package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
)

// CooldownError rejects a manual retry attempted inside the cooldown window.
// Remaining is rounded up so the client never shows zero seconds while still
// blocked.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("retry available in %d seconds", e.RemainingSeconds())
}

func (e *CooldownError) RemainingSeconds() int {
	return int((e.Remaining + time.Second - 1) / time.Second)
}

func writeStoreError(c *gin.Context, err error, fallback string) {
	var cooldown *CooldownError
	switch {
	case errors.As(err, &cooldown):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":            cooldown.Error(),
			"cooldown_seconds": cooldown.RemainingSeconds(),
			"retry_allowed_at": timeNowUTC().Add(cooldown.Remaining).Format(time.RFC3339),
		})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": fallback})
	case errors.Is(err, ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
