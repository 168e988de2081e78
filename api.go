// Package dispatchz provides a bounded-concurrency batch dispatcher for
// Go channels. Items flowing through a Result channel are accumulated into
// batches, each batch is released once a combined count/time/concurrency
// gate is satisfied, and released batches are handed to a user-supplied
// process function whose results flow downstream as they complete.
//
// The core abstraction is the Dispatcher, which reads Result[In] values,
// groups them, and emits one Result[Out] per released batch. Release is
// controlled by three independently latched conditions: a minimum batch
// size, a minimum interval since the last release, and an available
// concurrency slot. A condition that becomes true while the gate waits on
// another is never lost - the batch fires the instant the last condition
// is met.
//
// Basic usage:
//
//	ctx := context.Background()
//
//	dispatcher, err := dispatchz.NewDispatcher(
//		func(ctx context.Context, batch []Event) (Receipt, error) {
//			return bulkInsert(ctx, batch)
//		},
//		dispatchz.Config{
//			MinSize:        50,
//			MinInterval:    time.Second,
//			MaxConcurrency: 4,
//		},
//		dispatchz.RealClock,
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	for result := range dispatcher.Process(ctx, events) {
//		if result.IsError() {
//			// Terminal failure: no further results follow.
//			log.Printf("dispatch failed: %v", result.Error())
//			break
//		}
//		fmt.Printf("receipt: %+v\n", result.Value())
//	}
//
// Per-batch timeouts and retries are composition concerns layered around
// the process function, not dispatcher features - see WithTimeout and
// WithRetry.
package dispatchz

import (
	"context"
	"time"
)

// Processor is the core interface for stream processing components.
// It transforms an input channel of type In to an output channel of type Out.
// Processors should:
//   - Close the output channel when processing is complete
//   - Respect context cancellation
//   - Be safe for concurrent use
type Processor[In, Out any] interface {
	// Process transforms the input channel to an output channel.
	// It should close the output channel when processing is complete.
	Process(ctx context.Context, in <-chan In) <-chan Out

	// Name returns a descriptive name for the processor, useful for debugging.
	Name() string
}

// ProcessFunc consumes one released batch and produces a single output value.
// The batch is always non-empty and items retain their source order. Calls
// may overlap up to the dispatcher's concurrency ceiling, may take arbitrary
// time to resolve, and may fail. Ownership of the batch slice transfers to
// the function; the dispatcher never touches it again.
type ProcessFunc[In, Out any] func(ctx context.Context, batch []In) (Out, error)

// Config controls when the Dispatcher releases a batch for processing.
// The zero value is valid: every item is dispatched on its own as soon as
// a concurrency slot is free.
type Config struct {
	// MinInterval is the minimum wall-clock time that must elapse, counted
	// from the moment the gate was last (re)armed, before a batch may be
	// released. Zero disables the time condition.
	MinInterval time.Duration

	// MinSize is the minimum number of accumulated items required before a
	// batch may be released. Zero defaults to 1.
	MinSize int

	// MaxConcurrency is the maximum number of batches whose process call
	// may be outstanding simultaneously. Zero defaults to 1.
	MaxConcurrency int
}
