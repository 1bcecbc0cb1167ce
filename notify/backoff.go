package notify

import (
	"math"
	"time"

	"github.com/mmdatafocus/precast_backend/config"
)

type RetryConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// RetryConfigFromEnv reads OUTBOX_MAX_ATTEMPTS, OUTBOX_BASE_BACKOFF_SECONDS and OUTBOX_MAX_BACKOFF_SECONDS.
func RetryConfigFromEnv() RetryConfig {
	cfg := RetryConfig{
		MaxAttempts: 20,
		BaseBackoff: 5 * time.Second,
		MaxBackoff:  10 * time.Minute,
	}
	if n := config.IntFromEnv("OUTBOX_MAX_ATTEMPTS", 0); n > 0 {
		cfg.MaxAttempts = n
	}
	if n := config.IntFromEnv("OUTBOX_BASE_BACKOFF_SECONDS", 0); n > 0 {
		cfg.BaseBackoff = time.Duration(n) * time.Second
	}
	if n := config.IntFromEnv("OUTBOX_MAX_BACKOFF_SECONDS", 0); n > 0 {
		cfg.MaxBackoff = time.Duration(n) * time.Second
	}
	return cfg
}

// Backoff is base * 2^(attempt-1), capped at MaxBackoff.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	if attempt <= 1 {
		return c.BaseBackoff
	}
	delay := float64(c.BaseBackoff) * math.Pow(2, float64(attempt-1))
	if delay >= float64(c.MaxBackoff) {
		return c.MaxBackoff
	}
	return time.Duration(delay)
}

// Exhausted reports whether attempt used up the retry budget.
func (c RetryConfig) Exhausted(attempt int) bool {
	return c.MaxAttempts > 0 && attempt >= c.MaxAttempts
}
