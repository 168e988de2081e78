package dispatchz

import (
	"fmt"
	"time"
)

// Result represents either a successful value or an error in stream
// processing. It replaces dual-channel error handling with a single
// unified stream: both values and failures flow through the same channel.
// Metadata support carries batch provenance through the pipeline.
type Result[T any] struct {
	value    T
	err      *StreamError[T]
	metadata map[string]any // nil by default for zero overhead
}

// NewSuccess creates a Result containing a successful value.
func NewSuccess[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// NewError creates a Result containing an error.
func NewError[T any](item T, err error, processorName string) Result[T] {
	return Result[T]{err: NewStreamError(item, err, processorName)}
}

// IsError returns true if this Result contains an error.
func (r Result[T]) IsError() bool {
	return r.err != nil
}

// IsSuccess returns true if this Result contains a successful value.
func (r Result[T]) IsSuccess() bool {
	return r.err == nil
}

// Value returns the successful value.
// Panics if called on a Result containing an error - always check
// IsSuccess() first.
func (r Result[T]) Value() T {
	if r.err != nil {
		panic("called Value() on Result containing an error")
	}
	return r.value
}

// Error returns the StreamError.
// Returns nil if this Result contains a successful value.
func (r Result[T]) Error() *StreamError[T] {
	return r.err
}

// ValueOr returns the successful value if present, otherwise the fallback.
func (r Result[T]) ValueOr(fallback T) T {
	if r.err != nil {
		return fallback
	}
	return r.value
}

// Map applies a function to the value if this Result is successful.
// If this Result contains an error, returns the error unchanged.
// Metadata is preserved through successful transformations.
func (r Result[T]) Map(fn func(T) T) Result[T] {
	if r.err != nil {
		return r
	}

	result := NewSuccess(fn(r.value))
	result.metadata = r.metadata
	return result
}

// Metadata keys attached by the Dispatcher to successful batch results.
const (
	MetadataBatchID    = "batch_id"    // string - uuid assigned at release
	MetadataBatchSize  = "batch_size"  // int - number of items in the batch
	MetadataReleasedAt = "released_at" // time.Time - clock time of release
)

// WithMetadata returns a new Result with the specified metadata key-value
// pair. The original Result is unchanged; calls can be chained. Empty keys
// are ignored.
func (r Result[T]) WithMetadata(key string, value any) Result[T] {
	if key == "" {
		return r
	}

	newMetadata := make(map[string]any, len(r.metadata)+1)
	for k, v := range r.metadata {
		newMetadata[k] = v
	}
	newMetadata[key] = value

	return Result[T]{
		value:    r.value,
		err:      r.err,
		metadata: newMetadata,
	}
}

// GetMetadata retrieves a metadata value by key.
// Returns the value and true if the key exists, nil and false otherwise.
func (r Result[T]) GetMetadata(key string) (any, bool) {
	if r.metadata == nil {
		return nil, false
	}
	value, exists := r.metadata[key]
	return value, exists
}

// HasMetadata returns true if this Result contains any metadata.
func (r Result[T]) HasMetadata() bool {
	return len(r.metadata) > 0
}

// GetStringMetadata retrieves string metadata with type safety.
// Returns: (value, found, error)
//   - found=false, error=nil: key not present
//   - found=false, error!=nil: key present but wrong type
//   - found=true, error=nil: successful retrieval.
func (r Result[T]) GetStringMetadata(key string) (string, bool, error) {
	value, exists := r.GetMetadata(key)
	if !exists {
		return "", false, nil
	}
	str, ok := value.(string)
	if !ok {
		return "", false, fmt.Errorf("metadata key %q has type %T, expected string", key, value)
	}
	return str, true, nil
}

// GetIntMetadata retrieves int metadata with type safety.
func (r Result[T]) GetIntMetadata(key string) (int, bool, error) {
	value, exists := r.GetMetadata(key)
	if !exists {
		return 0, false, nil
	}
	i, ok := value.(int)
	if !ok {
		return 0, false, fmt.Errorf("metadata key %q has type %T, expected int", key, value)
	}
	return i, true, nil
}

// GetTimeMetadata retrieves time.Time metadata with type safety.
func (r Result[T]) GetTimeMetadata(key string) (time.Time, bool, error) {
	value, exists := r.GetMetadata(key)
	if !exists {
		return time.Time{}, false, nil
	}
	t, ok := value.(time.Time)
	if !ok {
		return time.Time{}, false, fmt.Errorf("metadata key %q has type %T, expected time.Time", key, value)
	}
	return t, true, nil
}
