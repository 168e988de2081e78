package dispatchz

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Dispatcher accumulates items from a stream into batches and hands each
// released batch to a process function under a concurrency ceiling.
//
// A batch is released when three conditions hold simultaneously: at least
// MinSize items have accumulated, at least MinInterval has elapsed since
// the gate was last armed, and fewer than MaxConcurrency batches are in
// flight. The count and time conditions latch while waiting for a free
// slot, so release fires the instant the last condition becomes true.
//
// Results are emitted in completion order, not release order: with
// MaxConcurrency > 1 a fast batch overtakes a slow one. This favors
// throughput; an order-preserving variant would need a reorder buffer on
// the output side and is deliberately not provided.
//
// Failures are fatal. An error Result arriving from upstream, or an error
// returned by the process function, becomes the dispatcher's single
// terminal error; pending items are discarded and in-flight results are
// abandoned. Downstream sees exactly one terminal signal per dispatcher
// lifetime: an error Result, or a clean close of the output channel.
//
// When to use:
//   - Bulk database writes fed by an event stream
//   - Coalescing API calls under a provider-side rate or batch limit
//   - Micro-batching with bounded parallelism against a slow backend
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type Dispatcher[In, Out any] struct {
	fn             ProcessFunc[In, Out]
	name           string
	clock          Clock
	minInterval    time.Duration
	minSize        int
	maxConcurrency int
}

// NewDispatcher creates a batch dispatcher around the given process
// function. Configuration is validated here and never again: a nil fn or
// clock, or a negative MinInterval, MinSize, or MaxConcurrency fails
// construction. Zero values take defaults (MinSize 1, MaxConcurrency 1,
// no time condition).
//
// Example:
//
//	dispatcher, err := dispatchz.NewDispatcher(
//		func(ctx context.Context, ids []string) (int, error) {
//			return store.DeleteAll(ctx, ids)
//		},
//		dispatchz.Config{MinSize: 100, MinInterval: 250 * time.Millisecond},
//		dispatchz.RealClock,
//	)
func NewDispatcher[In, Out any](fn ProcessFunc[In, Out], cfg Config, clock Clock) (*Dispatcher[In, Out], error) {
	if fn == nil {
		return nil, ErrNilProcessFunc
	}
	if clock == nil {
		return nil, ErrNilClock
	}
	if cfg.MinInterval < 0 {
		return nil, ErrNegativeInterval
	}
	if cfg.MinSize < 0 {
		return nil, ErrNegativeMinSize
	}
	if cfg.MaxConcurrency < 0 {
		return nil, ErrNegativeConcurrency
	}

	minSize := cfg.MinSize
	if minSize == 0 {
		minSize = 1
	}
	maxConcurrency := cfg.MaxConcurrency
	if maxConcurrency == 0 {
		maxConcurrency = 1
	}

	return &Dispatcher[In, Out]{
		fn:             fn,
		name:           "dispatcher",
		clock:          clock,
		minInterval:    cfg.MinInterval,
		minSize:        minSize,
		maxConcurrency: maxConcurrency,
	}, nil
}

// WithName sets a custom name for this processor.
// If not set, defaults to "dispatcher".
func (d *Dispatcher[In, Out]) WithName(name string) *Dispatcher[In, Out] {
	d.name = name
	return d
}

// Name returns the processor name for debugging and monitoring.
func (d *Dispatcher[In, Out]) Name() string {
	return d.name
}

// Process consumes the input stream and returns the dispatcher's output
// stream. One Result[Out] is emitted per released batch, in completion
// order. The output channel closes after the input closes, the final
// partial batch (if any) is flushed, and every in-flight batch resolves -
// or immediately after the first failure or context cancellation.
func (d *Dispatcher[In, Out]) Process(ctx context.Context, in <-chan Result[In]) <-chan Result[Out] {
	out := make(chan Result[Out])
	go d.run(ctx, in, out)
	return out
}

// run is the single-writer event loop. All mutations of the pending batch,
// the in-flight counter, and the gate latches happen here, driven by four
// event sources: item received, gate timer fired, process call resolved,
// and input closed. The loop moves through three phases - accumulating,
// draining after input close, terminated.
func (d *Dispatcher[In, Out]) run(ctx context.Context, in <-chan Result[In], out chan<- Result[Out]) {
	defer close(out)

	// Cancelling flightCtx abandons in-flight process calls on
	// termination: their results have nowhere to go.
	flightCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	gate := newReleaseGate(d.minSize, d.minInterval, d.clock)
	defer gate.stop()

	var (
		batch    = make([]In, 0, d.minSize)
		inFlight int
		draining bool
	)
	done := make(chan Result[Out])

	// maybeRelease fires the gate if every condition holds. At most one
	// batch is pending, so one release per event suffices. While draining,
	// count and time are bypassed; the concurrency ceiling never is.
	maybeRelease := func() {
		if inFlight >= d.maxConcurrency || len(batch) == 0 {
			return
		}
		if !draining && !gate.ready(len(batch)) {
			return
		}
		ready := batch
		batch = make([]In, 0, d.minSize)
		inFlight++
		gate.rearm()
		go d.dispatch(flightCtx, ready, done)
	}

	for {
		if draining && inFlight == 0 && len(batch) == 0 {
			return
		}

		select {
		case <-ctx.Done():
			return

		case <-gate.timerC():
			gate.markElapsed()
			maybeRelease()

		case r, ok := <-in:
			if !ok {
				// Upstream completed: flush whatever accumulated, then
				// wait out the in-flight batches. A nil channel removes
				// this case from the select.
				in = nil
				draining = true
				maybeRelease()
				continue
			}
			if r.IsError() {
				// Source failure: pending items are discarded, the error
				// becomes the terminal signal.
				d.emit(ctx, out, d.wrapSourceError(r))
				return
			}
			batch = append(batch, r.Value())
			maybeRelease()

		case result := <-done:
			inFlight--
			if !d.emit(ctx, out, result) {
				return
			}
			if result.IsError() {
				// Processing failure is terminal: no further releases,
				// in-flight results are abandoned.
				return
			}
			maybeRelease()
		}
	}
}

// dispatch runs one process call and reports its outcome to the event
// loop. The batch slice is owned by the process function from here on.
func (d *Dispatcher[In, Out]) dispatch(ctx context.Context, batch []In, done chan<- Result[Out]) {
	id := uuid.NewString()
	releasedAt := d.clock.Now()

	value, err := d.fn(ctx, batch)

	var result Result[Out]
	if err != nil {
		result = Result[Out]{err: &StreamError[Out]{
			Item:          value,
			Err:           &BatchError[In]{Batch: batch, BatchID: id, Err: err},
			ProcessorName: d.name,
			Timestamp:     d.clock.Now(),
		}}
	} else {
		result = NewSuccess(value).
			WithMetadata(MetadataBatchID, id).
			WithMetadata(MetadataBatchSize, len(batch)).
			WithMetadata(MetadataReleasedAt, releasedAt)
	}

	select {
	case done <- result:
	case <-ctx.Done():
	}
}

// wrapSourceError converts an upstream error Result to the output type,
// keeping the original error and timestamp.
func (d *Dispatcher[In, Out]) wrapSourceError(r Result[In]) Result[Out] {
	return Result[Out]{err: &StreamError[Out]{
		Item:          *new(Out), // zero value
		Err:           r.Error(),
		ProcessorName: d.name,
		Timestamp:     r.Error().Timestamp,
	}}
}

// emit forwards a result downstream, honoring cancellation.
func (d *Dispatcher[In, Out]) emit(ctx context.Context, out chan<- Result[Out], r Result[Out]) bool {
	select {
	case out <- r:
		return true
	case <-ctx.Done():
		return false
	}
}
