package dispatchz

import (
	"context"
	"errors"
	"time"
)

// ErrProcessTimeout is returned by a WithTimeout-wrapped process function
// when the wrapped call does not resolve within the configured duration.
var ErrProcessTimeout = errors.New("dispatchz: process call timed out")

// WithTimeout bounds each call of a process function to the given
// duration. The Dispatcher itself imposes no per-batch timeout - this
// decorator is the composition point for one.
//
// On expiry the wrapped function's context is canceled, the zero Out and
// ErrProcessTimeout are returned, and the underlying call is left to wind
// down on its own. Under a Dispatcher the timeout therefore surfaces as a
// terminal BatchError wrapping ErrProcessTimeout, unless softened further
// by WithRetry.
//
// Example:
//
//	fn := dispatchz.WithTimeout(bulkInsert, 5*time.Second, dispatchz.RealClock)
//	dispatcher, err := dispatchz.NewDispatcher(fn, cfg, dispatchz.RealClock)
func WithTimeout[In, Out any](fn ProcessFunc[In, Out], d time.Duration, clock Clock) ProcessFunc[In, Out] {
	return func(ctx context.Context, batch []In) (Out, error) {
		callCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		timer := clock.NewTimer(d)
		defer timer.Stop()

		type outcome struct {
			value Out
			err   error
		}
		// Buffered so an abandoned call can still resolve without leaking.
		resolved := make(chan outcome, 1)

		go func() {
			value, err := fn(callCtx, batch)
			resolved <- outcome{value: value, err: err}
		}()

		var zero Out
		select {
		case o := <-resolved:
			return o.value, o.err
		case <-timer.C():
			return zero, ErrProcessTimeout
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}
