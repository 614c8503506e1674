package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/autollama/ingestor/internal/ingesterr"
)

func TestDoSucceedsWithoutRetry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), AnalyzerEmbedderPolicy, func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 call, got %d", calls)
	}
}

func TestDoRetriesRetryableErrors(t *testing.T) {
	calls := 0
	policy := Policy{Base: time.Millisecond, Cap: 5 * time.Millisecond, Jitter: 0, MaxAttempts: 3}
	err := Do(context.Background(), policy, func(context.Context) error {
		calls++
		if calls < 3 {
			return ingesterr.New("test", ingesterr.NetworkTransient, errors.New("transient"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls before success, got %d", calls)
	}
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	calls := 0
	policy := Policy{Base: time.Millisecond, Cap: 5 * time.Millisecond, Jitter: 0, MaxAttempts: 5}
	wantErr := ingesterr.New("test", ingesterr.Validation, errors.New("bad input"))
	err := Do(context.Background(), policy, func(context.Context) error {
		calls++
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("expected the non-retryable error back, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 call for a non-retryable error, got %d", calls)
	}
}

func TestDoExhaustsMaxAttempts(t *testing.T) {
	calls := 0
	policy := Policy{Base: time.Millisecond, Cap: 5 * time.Millisecond, Jitter: 0, MaxAttempts: 3}
	retryableErr := ingesterr.New("test", ingesterr.Timeout, errors.New("slow"))
	err := Do(context.Background(), policy, func(context.Context) error {
		calls++
		return retryableErr
	})
	if err != retryableErr {
		t.Fatalf("expected last error returned, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected exactly MaxAttempts=3 calls, got %d", calls)
	}
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Do(ctx, AnalyzerEmbedderPolicy, func(context.Context) error {
		calls++
		return nil
	})
	if err == nil {
		t.Fatal("expected an error for an already-cancelled context")
	}
	if ingesterr.KindOf(err) != ingesterr.Cancelled {
		t.Fatalf("expected Cancelled kind, got %s", ingesterr.KindOf(err))
	}
	if calls != 0 {
		t.Fatalf("expected fn never to run, got %d calls", calls)
	}
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	d1 := Backoff(1)
	if d1 < 24*time.Second || d1 > 36*time.Second {
		t.Fatalf("Backoff(1) = %v, expected ~30s ±20%%", d1)
	}
	d10 := Backoff(10)
	if d10 < 8*time.Minute || d10 > 12*time.Minute {
		t.Fatalf("Backoff(10) = %v, expected 10min cap ±20%%", d10)
	}
}
