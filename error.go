package dispatchz

import (
	"errors"
	"fmt"
	"time"
)

// Configuration errors returned by NewDispatcher. Construction fails fast;
// a successfully constructed Dispatcher never fails for config reasons at
// runtime.
var (
	// ErrNilProcessFunc indicates no process function was supplied.
	ErrNilProcessFunc = errors.New("dispatchz: process function is nil")

	// ErrNilClock indicates no clock was supplied.
	ErrNilClock = errors.New("dispatchz: clock is nil")

	// ErrNegativeInterval indicates Config.MinInterval was negative.
	ErrNegativeInterval = errors.New("dispatchz: MinInterval must not be negative")

	// ErrNegativeMinSize indicates Config.MinSize was negative.
	ErrNegativeMinSize = errors.New("dispatchz: MinSize must not be negative")

	// ErrNegativeConcurrency indicates Config.MaxConcurrency was negative.
	ErrNegativeConcurrency = errors.New("dispatchz: MaxConcurrency must not be negative")
)

// StreamError represents an error that occurred during stream processing.
// It captures both the item that caused the error and the error itself,
// enabling better debugging and error handling strategies.
//
//nolint:govet // fieldalignment: struct layout optimized for readability over memory
type StreamError[T any] struct {
	// Item is the original item that caused the processing error.
	Item T

	// Err is the underlying error that occurred during processing.
	Err error

	// ProcessorName identifies which processor generated the error.
	ProcessorName string

	// Timestamp records when the error occurred.
	Timestamp time.Time
}

// NewStreamError creates a new StreamError with the current timestamp.
func NewStreamError[T any](item T, err error, processorName string) *StreamError[T] {
	return &StreamError[T]{
		Item:          item,
		Err:           err,
		ProcessorName: processorName,
		Timestamp:     time.Now(),
	}
}

// String returns a human-readable representation of the error.
func (se *StreamError[T]) String() string {
	return fmt.Sprintf("StreamError[%s]: %v (item: %v, time: %s)",
		se.ProcessorName, se.Err, se.Item, se.Timestamp.Format(time.RFC3339))
}

// Unwrap returns the underlying error, enabling error wrapping chains.
func (se *StreamError[T]) Unwrap() error {
	return se.Err
}

// Error implements the error interface.
func (se *StreamError[T]) Error() string {
	return se.String()
}

// BatchError reports a failed process call together with the batch that
// produced it. It is the Err inside the terminal StreamError emitted by a
// Dispatcher when processing fails, preserving the released items for
// inspection or requeueing by the caller.
type BatchError[In any] struct {
	// Batch holds the items of the batch whose process call failed,
	// in source order.
	Batch []In

	// BatchID is the uuid assigned to the batch at release.
	BatchID string

	// Err is the error returned by the process function.
	Err error
}

// Error implements the error interface.
func (e *BatchError[In]) Error() string {
	return fmt.Sprintf("batch %s (%d items): %v", e.BatchID, len(e.Batch), e.Err)
}

// Unwrap returns the process function's error.
func (e *BatchError[In]) Unwrap() error {
	return e.Err
}
