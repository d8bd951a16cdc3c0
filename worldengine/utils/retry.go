package utils

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/noxhaven/world-engine/worldengine/config"
)

// RetryableError reports whether err looks like a transient serialization or
// lock conflict worth retrying. Postgres surfaces these as SQLSTATE 40001
// (serialization_failure), 40P01 (deadlock_detected) and 55P03
// (lock_not_available).
func RetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, code := range []string{"40001", "40P01", "55P03"} {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return strings.Contains(msg, "could not serialize access")
}

// WithConflictRetry runs fn up to config.MaxRetries times, sleeping with
// jittered backoff between attempts while fn keeps failing retryably. The
// final error is returned unchanged so callers can translate it into a
// ConflictError for the API surface.
func WithConflictRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < config.MaxRetries; attempt++ {
		if err = fn(ctx); err == nil || !RetryableError(err) {
			return err
		}

		backoff := config.RetryBaseBackoff*time.Duration(attempt+1) +
			time.Duration(rand.Int63n(int64(config.RetryMaxJitter)))
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// Clamp bounds v to [min, max].
func Clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// ClampFloat bounds v to [min, max].
func ClampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
