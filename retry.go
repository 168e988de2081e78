package dispatchz

import (
	"context"
	crand "crypto/rand"
	"math"
	"math/big"
	"time"
)

// Retry wraps a process function with automatic retries using exponential
// backoff and optional jitter. The Dispatcher never retries on its own -
// failures are terminal - so resilience against transient backend errors
// is layered here, around the process function, before construction.
//
// Key features:
//   - Exponential backoff with configurable base and max delays.
//   - Optional jitter to prevent thundering herd problems.
//   - Custom error classification for retry decisions.
//   - Context-aware delays that respect cancellation.
//
// Example:
//
//	// Basic retry with defaults (3 attempts, 100ms base delay).
//	fn := dispatchz.WithRetry(bulkInsert, dispatchz.RealClock).Func()
//
//	// Custom retry configuration.
//	fn := dispatchz.WithRetry(bulkInsert, dispatchz.RealClock).
//		MaxAttempts(5).
//		BaseDelay(200*time.Millisecond).
//		MaxDelay(10*time.Second).
//		WithJitter(true).
//		Func()
//
//	// Only retry transient errors.
//	fn := dispatchz.WithRetry(bulkInsert, dispatchz.RealClock).
//		OnError(func(err error, attempt int) bool {
//			return errors.Is(err, dispatchz.ErrProcessTimeout)
//		}).
//		Func()
//
//	dispatcher, err := dispatchz.NewDispatcher(fn, cfg, dispatchz.RealClock)
//
//nolint:govet // fieldalignment: logical field grouping preferred over memory optimization
type Retry[In, Out any] struct {
	fn          ProcessFunc[In, Out]
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	withJitter  bool
	onError     func(error, int) bool // (error, attempt) -> shouldRetry
	clock       Clock
}

// WithRetry creates a retry wrapper around a process function.
//
// Default configuration:
//   - MaxAttempts: 3.
//   - BaseDelay: 100ms.
//   - MaxDelay: 30s.
//   - WithJitter: true.
//
// Use the fluent API to customize, then Func() to obtain the wrapped
// ProcessFunc.
func WithRetry[In, Out any](fn ProcessFunc[In, Out], clock Clock) *Retry[In, Out] {
	return &Retry[In, Out]{
		fn:          fn,
		clock:       clock,
		maxAttempts: 3,
		baseDelay:   100 * time.Millisecond,
		maxDelay:    30 * time.Second,
		withJitter:  true,
	}
}

// MaxAttempts sets the maximum number of attempts per batch.
// Includes the initial attempt, so MaxAttempts(3) means 1 initial + 2 retries.
func (r *Retry[In, Out]) MaxAttempts(attempts int) *Retry[In, Out] {
	if attempts < 1 {
		attempts = 1
	}
	r.maxAttempts = attempts
	return r
}

// BaseDelay sets the base delay for exponential backoff.
// The delay before retry N is baseDelay * 2^(N-1).
func (r *Retry[In, Out]) BaseDelay(delay time.Duration) *Retry[In, Out] {
	if delay < 0 {
		delay = 0
	}
	r.baseDelay = delay
	return r
}

// MaxDelay caps the backoff delay between attempts.
func (r *Retry[In, Out]) MaxDelay(delay time.Duration) *Retry[In, Out] {
	if delay < 0 {
		delay = 0
	}
	r.maxDelay = delay
	return r
}

// WithJitter enables or disables jitter in retry delays.
// When enabled, delays are randomized between 50% and 100% of the
// calculated delay.
func (r *Retry[In, Out]) WithJitter(enabled bool) *Retry[In, Out] {
	r.withJitter = enabled
	return r
}

// OnError sets a custom error classification function. It receives the
// error and the attempt number that produced it, and returns true if the
// batch should be retried. If not set, all errors are retried.
func (r *Retry[In, Out]) OnError(fn func(error, int) bool) *Retry[In, Out] {
	r.onError = fn
	return r
}

// Func returns the retrying ProcessFunc. The last error is returned once
// attempts are exhausted or classified as non-retryable.
func (r *Retry[In, Out]) Func() ProcessFunc[In, Out] {
	return func(ctx context.Context, batch []In) (Out, error) {
		var (
			value   Out
			lastErr error
		)

		for attempt := 1; attempt <= r.maxAttempts; attempt++ {
			if attempt > 1 {
				select {
				case <-r.clock.After(r.calculateDelay(attempt - 1)):
				case <-ctx.Done():
					var zero Out
					return zero, ctx.Err()
				}
			}

			value, lastErr = r.fn(ctx, batch)
			if lastErr == nil {
				return value, nil
			}

			if r.onError != nil && !r.onError(lastErr, attempt) {
				break
			}
		}

		return value, lastErr
	}
}

// calculateDelay computes the backoff delay before a given retry attempt.
func (r *Retry[In, Out]) calculateDelay(attempt int) time.Duration {
	// Exponential backoff: baseDelay * 2^(attempt-1).
	delay := float64(r.baseDelay) * math.Pow(2, float64(attempt-1))

	if time.Duration(delay) > r.maxDelay {
		delay = float64(r.maxDelay)
	}

	if r.withJitter {
		// Cryptographically secure random jitter between 0.5 and 1.0.
		n, err := crand.Int(crand.Reader, big.NewInt(500))
		if err != nil {
			n = big.NewInt(250)
		}
		jitter := 0.5 + float64(n.Int64())/1000.0
		delay *= jitter
	}

	return time.Duration(delay)
}
