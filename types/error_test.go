package types

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrTransport, "backend failed").
		WithCause(root).
		WithAgent("coder").
		WithStage("reply").
		WithRound(4).
		WithRetryable(true)

	if GetErrorCode(err) != ErrTransport {
		t.Fatalf("expected code %s, got %s", ErrTransport, GetErrorCode(err))
	}
	if !IsRetryable(err) {
		t.Fatalf("expected retryable")
	}
	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is unwrap to root")
	}
	want := "[TRANSPORT] round=4 stage=reply agent=coder backend failed: root"
	if got := err.Error(); got != want {
		t.Fatalf("unexpected error string %q", got)
	}
}

func TestError_CodeThroughWrapping(t *testing.T) {
	t.Parallel()

	inner := NewError(ErrStructuralValidation, "no payload")
	wrapped := fmt.Errorf("reviewer: %w", inner)

	if !IsErrorCode(wrapped, ErrStructuralValidation) {
		t.Fatalf("expected code to survive fmt wrapping")
	}
	if IsErrorCode(errors.New("plain"), ErrStructuralValidation) {
		t.Fatalf("plain errors carry no code")
	}
}

func TestIsCancellation(t *testing.T) {
	t.Parallel()

	if IsCancellation(nil) {
		t.Fatalf("nil is not a cancellation")
	}
	if !IsCancellation(fmt.Errorf("stop: %w", context.Canceled)) {
		t.Fatalf("context.Canceled should count as cancellation")
	}
	if !IsCancellation(NewError(ErrCancelled, "stopped")) {
		t.Fatalf("CANCELLED code should count as cancellation")
	}
	if IsCancellation(NewError(ErrTransport, "down")) {
		t.Fatalf("transport errors are failures")
	}
}
