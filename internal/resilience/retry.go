// Package resilience provides the retry, circuit-breaker and bulkhead
// primitives that wrap gateway calls and queue operations.
package resilience

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/corebank/banking-backend/internal/domain"
)

const maxBackoffShift = 32

// Policy retries an operation a bounded number of times with exponential
// backoff and full jitter. Only errors classified retryable by
// domain.IsRetryable are attempted again; everything else short-circuits
// straight back to the caller.
type Policy struct {
	MaxAttempts int
	BaseBackoff time.Duration
}

// NewPolicy creates a retry policy. maxAttempts is the total number of
// attempts, including the first.
func NewPolicy(maxAttempts int, baseBackoff time.Duration) *Policy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Policy{MaxAttempts: maxAttempts, BaseBackoff: baseBackoff}
}

// Do runs fn, retrying transient failures up to the attempt bound.
// Returns the last error on exhaustion.
func (p *Policy) Do(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepWithContext(ctx, jitteredBackoff(p.BaseBackoff, attempt-1)); err != nil {
				return err
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !domain.IsRetryable(lastErr) {
			return lastErr
		}
	}

	return fmt.Errorf("retries exhausted after %d attempts: %w", p.MaxAttempts, lastErr)
}

// jitteredBackoff returns a random duration in [0, base * 2^attempt).
// Full jitter keeps contending workers from retrying in lockstep.
func jitteredBackoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt > maxBackoffShift {
		attempt = maxBackoffShift
	}

	delay := int64(base) << attempt
	if delay <= 0 || delay > int64(math.MaxInt64)>>1 {
		delay = int64(math.MaxInt64) >> 1
	}
	return time.Duration(rand.Int63n(delay))
}

// sleepWithContext sleeps for the duration but respects context cancellation
func sleepWithContext(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return nil
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
