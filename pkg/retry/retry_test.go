package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeSleep records requested waits without actually sleeping.
func fakeSleep(waits *[]time.Duration) SleepFunc {
	return func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	var waits []time.Duration
	calls := 0
	err := Do(context.Background(), DefaultPolicy(), fakeSleep(&waits), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if len(waits) != 0 {
		t.Errorf("waits = %v, want none", waits)
	}
}

func TestDo_ExhaustsAttemptsWithBackoff(t *testing.T) {
	var waits []time.Duration
	calls := 0
	boom := errors.New("boom")

	err := Do(context.Background(), DefaultPolicy(), fakeSleep(&waits), func(context.Context) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Do() error = %v, want boom", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want exactly MaxAttempts (3)", calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(waits) != len(want) || waits[0] != want[0] || waits[1] != want[1] {
		t.Errorf("waits = %v, want %v (1s, 2s; no wait after the final attempt)", waits, want)
	}
}

func TestDo_HonorsRetryAfterHint(t *testing.T) {
	var waits []time.Duration
	calls := 0

	err := Do(context.Background(), DefaultPolicy(), fakeSleep(&waits), func(context.Context) error {
		calls++
		if calls == 1 {
			return &RateLimitError{RetryAfter: 7 * time.Second}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	if len(waits) != 1 || waits[0] != 7*time.Second {
		t.Errorf("waits = %v, want [7s]", waits)
	}
}

func TestDo_RateLimitWithoutHintUsesBackoff(t *testing.T) {
	var waits []time.Duration
	calls := 0

	err := Do(context.Background(), DefaultPolicy(), fakeSleep(&waits), func(context.Context) error {
		calls++
		if calls == 1 {
			return &RateLimitError{}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	if len(waits) != 1 || waits[0] != time.Second {
		t.Errorf("waits = %v, want [1s] from the backoff curve", waits)
	}
}

// Rate-limit waits consume attempts like any other failure.
func TestDo_RateLimitsCountTowardAttempts(t *testing.T) {
	var waits []time.Duration
	calls := 0

	err := Do(context.Background(), DefaultPolicy(), fakeSleep(&waits), func(context.Context) error {
		calls++
		return &RateLimitError{RetryAfter: time.Second}
	})
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("Do() error = %v, want RateLimitError", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_ContextCanceledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sleep := func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	err := Do(ctx, DefaultPolicy(), sleep, func(context.Context) error {
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() error = %v, want context.Canceled", err)
	}
}
