package dispatchz

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithRetry_SucceedsFirstAttempt(t *testing.T) {
	attempts := 0
	fn := WithRetry(func(_ context.Context, batch []int) (int, error) {
		attempts++
		return sum(batch), nil
	}, RealClock).Func()

	got, err := fn(context.Background(), []int{1, 2, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 6 {
		t.Errorf("expected 6, got %d", got)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestWithRetry_RecoversAfterTransientFailure(t *testing.T) {
	attempts := 0
	fn := WithRetry(func(_ context.Context, batch []int) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("transient")
		}
		return sum(batch), nil
	}, RealClock).
		MaxAttempts(3).
		BaseDelay(time.Millisecond).
		WithJitter(false).
		Func()

	got, err := fn(context.Background(), []int{2, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 5 {
		t.Errorf("expected 5, got %d", got)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	cause := errors.New("persistent")
	attempts := 0
	fn := WithRetry(func(_ context.Context, _ []int) (int, error) {
		attempts++
		return 0, cause
	}, RealClock).
		MaxAttempts(4).
		BaseDelay(time.Millisecond).
		WithJitter(false).
		Func()

	_, err := fn(context.Background(), []int{1})
	if !errors.Is(err, cause) {
		t.Errorf("expected %v, got %v", cause, err)
	}
	if attempts != 4 {
		t.Errorf("expected 4 attempts, got %d", attempts)
	}
}

func TestWithRetry_OnErrorStopsRetrying(t *testing.T) {
	fatal := errors.New("unauthorized")
	attempts := 0
	fn := WithRetry(func(_ context.Context, _ []int) (int, error) {
		attempts++
		return 0, fatal
	}, RealClock).
		MaxAttempts(5).
		BaseDelay(time.Millisecond).
		OnError(func(err error, _ int) bool {
			return !errors.Is(err, fatal)
		}).
		Func()

	_, err := fn(context.Background(), []int{1})
	if !errors.Is(err, fatal) {
		t.Errorf("expected %v, got %v", fatal, err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt for non-retryable error, got %d", attempts)
	}
}

func TestWithRetry_ContextCancellationDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fn := WithRetry(func(_ context.Context, _ []int) (int, error) {
		cancel()
		return 0, errors.New("transient")
	}, RealClock).
		MaxAttempts(3).
		BaseDelay(time.Hour).
		Func()

	_, err := fn(ctx, []int{1})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestWithRetry_ConfigClamping(t *testing.T) {
	r := WithRetry(func(_ context.Context, _ []int) (int, error) {
		return 0, nil
	}, RealClock).
		MaxAttempts(0).
		BaseDelay(-time.Second).
		MaxDelay(-time.Second)

	if r.maxAttempts != 1 {
		t.Errorf("expected attempts clamped to 1, got %d", r.maxAttempts)
	}
	if r.baseDelay != 0 {
		t.Errorf("expected base delay clamped to 0, got %v", r.baseDelay)
	}
	if r.maxDelay != 0 {
		t.Errorf("expected max delay clamped to 0, got %v", r.maxDelay)
	}
}

func TestRetry_CalculateDelay(t *testing.T) {
	r := WithRetry(func(_ context.Context, _ []int) (int, error) {
		return 0, nil
	}, RealClock).
		BaseDelay(100 * time.Millisecond).
		MaxDelay(time.Second).
		WithJitter(false)

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{5, time.Second}, // capped
	}

	for _, tc := range cases {
		if got := r.calculateDelay(tc.attempt); got != tc.want {
			t.Errorf("attempt %d: expected %v, got %v", tc.attempt, tc.want, got)
		}
	}
}

func TestRetry_CalculateDelayJitterBounds(t *testing.T) {
	r := WithRetry(func(_ context.Context, _ []int) (int, error) {
		return 0, nil
	}, RealClock).
		BaseDelay(100 * time.Millisecond).
		WithJitter(true)

	for i := 0; i < 100; i++ {
		got := r.calculateDelay(1)
		if got < 50*time.Millisecond || got > 100*time.Millisecond {
			t.Fatalf("jittered delay %v outside [50ms, 100ms]", got)
		}
	}
}
