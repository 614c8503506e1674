package session

import (
	"context"
	"testing"

	"github.com/autollama/ingestor/internal/ingesterr"
	"github.com/autollama/ingestor/internal/model"
)

// TestEndRejectsNonTerminalStatus exercises the validation branch of End,
// which must reject before ever touching the relational store so this is
// safe to call on a Manager with no database wired up.
func TestEndRejectsNonTerminalStatus(t *testing.T) {
	m := New(nil, nil, 0)
	err := m.End(context.Background(), "session-1", model.SessionProcessing, "")
	if err == nil {
		t.Fatal("expected an error for a non-terminal status")
	}
	if ingesterr.KindOf(err) != ingesterr.Validation {
		t.Fatalf("expected Validation kind, got %s", ingesterr.KindOf(err))
	}
}

func TestShouldEmitThrottlesWithinInterval(t *testing.T) {
	m := New(nil, nil, 0)
	if !m.shouldEmit("s1") {
		t.Fatal("first emit should always be allowed")
	}
	if m.shouldEmit("s1") {
		t.Fatal("second emit within the throttle window should be suppressed")
	}
	if !m.shouldEmit("s2") {
		t.Fatal("a different session id should not be throttled by s1's emit")
	}
}
