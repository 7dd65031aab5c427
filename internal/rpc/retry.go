package rpc

import (
	"math/rand"
	"time"
)

// RetryPolicy controls how transport failures are retried. Domain errors
// are never retried; idempotent methods rely on their own keys
// (report_match_result is keyed by match_id) rather than on the policy.
type RetryPolicy struct {
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	MaxAttempts    int
	JitterFraction float64
}

// DefaultRetryPolicy returns the standard policy: exponential backoff from
// 1s doubling to a 30s ceiling, uniform jitter up to 10%, three attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseDelay:      time.Second,
		MaxDelay:       30 * time.Second,
		MaxAttempts:    3,
		JitterFraction: 0.10,
	}
}

// Backoff returns the delay before the given retry attempt (0-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt > 30 {
		attempt = 30
	}
	delay := p.BaseDelay * time.Duration(1<<uint(attempt))
	if delay <= 0 || delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if p.JitterFraction > 0 {
		span := int64(float64(delay) * p.JitterFraction)
		if span > 0 {
			delay += time.Duration(rand.Int63n(span + 1))
		}
	}
	return delay
}
