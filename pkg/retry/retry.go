// Package retry executes operations under an explicit retry policy.
//
// The policy (attempt bound + backoff curve) and the sleep function are both
// injected, so backoff behavior is testable without real delays.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy bounds retries for one operation.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// Backoff maps a zero-based attempt number to the wait before the next
	// try.
	Backoff func(attempt int) time.Duration
}

// DefaultPolicy retries 3 times with 1s, 2s, 4s exponential backoff.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, Backoff: ExponentialBackoff(time.Second)}
}

// ExponentialBackoff returns base * 2^attempt.
func ExponentialBackoff(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return base << attempt
	}
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RateLimitError marks an operation failure where the remote side indicated
// when to try again. Do honors RetryAfter instead of the backoff curve, and
// the attempt still counts toward the policy's bound.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// Do runs op up to p.MaxAttempts times. It returns nil on the first success,
// or the last error once attempts are exhausted. Waits between attempts come
// from RetryAfter hints when present, from p.Backoff otherwise.
func Do(ctx context.Context, p Policy, sleep SleepFunc, op func(ctx context.Context) error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if sleep == nil {
		sleep = Sleep
	}

	var last error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		last = op(ctx)
		if last == nil {
			return nil
		}

		if attempt == p.MaxAttempts-1 {
			break
		}

		wait := p.Backoff(attempt)
		var rl *RateLimitError
		if errors.As(last, &rl) && rl.RetryAfter > 0 {
			wait = rl.RetryAfter
		}

		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
	return last
}
