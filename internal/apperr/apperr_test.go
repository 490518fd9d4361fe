package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesKind(t *testing.T) {
	err := NotFound("queue1")
	if !Is(err, KindNotFound) {
		t.Fatalf("Is(err, KindNotFound) = false, want true")
	}
	if Is(err, KindInvalidArg) {
		t.Fatalf("Is(err, KindInvalidArg) = true, want false")
	}
}

func TestIsComposesThroughWrapping(t *testing.T) {
	inner := NotFound("queue1")
	wrapped := fmt.Errorf("handler failed: %w", inner)
	if !Is(wrapped, KindNotFound) {
		t.Fatalf("Is did not see through fmt.Errorf wrapping")
	}
}

func TestStorageUnwrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Storage("insert message", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is(err, cause) = false, want true")
	}
}

func TestAsExtractsError(t *testing.T) {
	err := PayloadTooLarge("q1")
	ae, ok := As(err)
	if !ok {
		t.Fatalf("As returned ok=false")
	}
	if ae.Kind != KindPayloadTooLarge {
		t.Fatalf("Kind = %q, want %q", ae.Kind, KindPayloadTooLarge)
	}
}

func TestAsFailsForUntypedError(t *testing.T) {
	_, ok := As(errors.New("plain"))
	if ok {
		t.Fatalf("As returned ok=true for an untyped error")
	}
}
