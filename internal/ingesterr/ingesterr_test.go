package ingesterr

import (
	"errors"
	"fmt"
	"testing"
)

func TestRetryableKinds(t *testing.T) {
	retryable := []Kind{NetworkTransient, ProviderRateLimit, Timeout, VectorStoreUnavailable, RelationalStoreUnavailable}
	for _, k := range retryable {
		if !k.Retryable() {
			t.Errorf("%s should be retryable", k)
		}
	}

	notRetryable := []Kind{Validation, UnsupportedType, Oversize, ProviderSchema, Cancelled, Internal, Unknown}
	for _, k := range notRetryable {
		if k.Retryable() {
			t.Errorf("%s should not be retryable", k)
		}
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := New("fetch", NetworkTransient, cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to find the wrapped cause")
	}
	if got := err.Error(); got == "" {
		t.Fatal("expected non-empty error string")
	}
}

func TestKindOfUnwrapsThroughFmtErrorf(t *testing.T) {
	base := New("embed", ProviderRateLimit, errors.New("429"))
	wrapped := fmt.Errorf("context: %w", base)
	if KindOf(wrapped) != ProviderRateLimit {
		t.Fatalf("expected KindOf to find ProviderRateLimit through fmt.Errorf wrap, got %s", KindOf(wrapped))
	}
	if !Retryable(wrapped) {
		t.Fatal("expected wrapped ProviderRateLimit error to be retryable")
	}
}

func TestKindOfDefaultsToInternal(t *testing.T) {
	plain := errors.New("some unclassified failure")
	if KindOf(plain) != Internal {
		t.Fatalf("expected Internal for an unclassified error, got %s", KindOf(plain))
	}
}

func TestKindOfNilIsUnknown(t *testing.T) {
	if KindOf(nil) != Unknown {
		t.Fatalf("expected Unknown for nil error, got %s", KindOf(nil))
	}
}
