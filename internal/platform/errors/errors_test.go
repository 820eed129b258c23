package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapPreservesExistingKind(t *testing.T) {
	base := New(KindTimeout, "vision.analyze", "deadline exceeded")
	wrapped := Wrap(KindUnknown, "orchestrator.run", "analysis failed", base)

	if wrapped.Kind != KindTimeout {
		t.Fatalf("expected original kind to survive wrapping, got %s", wrapped.Kind)
	}
	if !IsKind(wrapped, KindTimeout) {
		t.Fatalf("IsKind should match the inner kind")
	}
	if IsKind(wrapped, KindCancelled) {
		t.Fatalf("IsKind matched the wrong kind")
	}
}

func TestWrapNilReturnsNil(t *testing.T) {
	if err := Wrap(KindStorage, "kv.set", "write failed", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestKindOfPlainError(t *testing.T) {
	if kind := KindOf(errors.New("boom")); kind != KindUnknown {
		t.Fatalf("plain errors should map to unknown, got %s", kind)
	}
}

func TestKindOfWrappedChain(t *testing.T) {
	inner := New(KindParse, "vision.parse", "bad json")
	outer := fmt.Errorf("analyze: %w", inner)
	if kind := KindOf(outer); kind != KindParse {
		t.Fatalf("expected parse kind through fmt wrapping, got %s", kind)
	}
}

func TestUserMessageCatalog(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{New(KindCancelled, "op", "internal detail"), "Operation cancelled."},
		{New(KindAPI, "op", "model overloaded"), "model overloaded"},
		{New(KindAPI, "op", ""), "The AI service is temporarily unavailable. Please try again later."},
		{errors.New("raw"), "An unknown error occurred. Please try again."},
	}
	for _, tc := range cases {
		if got := UserMessage(tc.err); got != tc.want {
			t.Fatalf("UserMessage(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
