package dispatchz

import (
	"errors"
	"strings"
	"testing"
)

func TestStreamError(t *testing.T) {
	cause := errors.New("connection refused")
	streamErr := NewStreamError("item-1", cause, "dispatcher")

	if streamErr.Item != "item-1" {
		t.Errorf("expected item 'item-1', got %q", streamErr.Item)
	}
	if !errors.Is(streamErr, cause) {
		t.Error("expected Unwrap chain to reach cause")
	}
	if streamErr.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}

	msg := streamErr.Error()
	if !strings.Contains(msg, "dispatcher") || !strings.Contains(msg, "connection refused") {
		t.Errorf("unexpected error message: %q", msg)
	}
}

func TestBatchError(t *testing.T) {
	cause := errors.New("insert failed")
	batchErr := &BatchError[int]{
		Batch:   []int{1, 2, 3},
		BatchID: "b-123",
		Err:     cause,
	}

	if !errors.Is(batchErr, cause) {
		t.Error("expected Unwrap to reach cause")
	}

	msg := batchErr.Error()
	if !strings.Contains(msg, "b-123") || !strings.Contains(msg, "3 items") {
		t.Errorf("unexpected error message: %q", msg)
	}
}

func TestBatchError_ChainThroughStreamError(t *testing.T) {
	cause := errors.New("insert failed")
	batchErr := &BatchError[int]{Batch: []int{1}, BatchID: "b-1", Err: cause}
	streamErr := NewStreamError(0, batchErr, "dispatcher")

	if !errors.Is(streamErr, cause) {
		t.Error("expected chain StreamError -> BatchError -> cause")
	}

	var target *BatchError[int]
	if !errors.As(streamErr, &target) {
		t.Fatal("expected errors.As to find BatchError")
	}
	if target.BatchID != "b-1" {
		t.Errorf("expected batch id 'b-1', got %q", target.BatchID)
	}
}
