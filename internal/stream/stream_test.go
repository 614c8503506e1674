package stream

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/autollama/ingestor/internal/model"
)

// fakeWriter records every Write and Flush, safe for concurrent use.
type fakeWriter struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	flushes int
	failing bool
}

func (f *fakeWriter) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return 0, errWrite
	}
	return f.buf.Write(p)
}

func (f *fakeWriter) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
}

func (f *fakeWriter) String() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buf.String()
}

var errWrite = &writeError{}

type writeError struct{}

func (*writeError) Error() string { return "write failed" }

func TestSubscribeWritesConnectedFrameFirst(t *testing.T) {
	s := New(time.Hour, nil)
	w := &fakeWriter{}
	unsubscribe := s.Subscribe("client-1", "", w)
	defer unsubscribe()

	if !strings.Contains(w.String(), `"event":"connected"`) {
		t.Fatalf("expected a connected frame first, got %q", w.String())
	}
	if !strings.HasPrefix(w.String(), "data: ") {
		t.Fatalf("expected SSE \"data: \" prefix, got %q", w.String())
	}
}

func TestBroadcastFiltersBySession(t *testing.T) {
	s := New(time.Hour, nil)
	wa := &fakeWriter{}
	wb := &fakeWriter{}
	unsubA := s.Subscribe("a", "session-1", wa)
	defer unsubA()
	unsubB := s.Subscribe("b", "session-2", wb)
	defer unsubB()

	s.Broadcast(model.Event{SessionID: "session-1", Type: model.EventChunkProcessed})

	if !strings.Contains(wa.String(), "chunk_processed") {
		t.Fatal("client subscribed to session-1 should receive the session-1 event")
	}
	if strings.Contains(wb.String(), "chunk_processed") {
		t.Fatal("client subscribed to session-2 should not receive a session-1 event")
	}
}

func TestBroadcastReachesUnfilteredClients(t *testing.T) {
	s := New(time.Hour, nil)
	w := &fakeWriter{}
	unsub := s.Subscribe("c", "", w)
	defer unsub()

	s.Broadcast(model.Event{SessionID: "session-9", Type: model.EventChunkProcessed})

	if !strings.Contains(w.String(), "chunk_processed") {
		t.Fatal("an unfiltered client should receive every session's events")
	}
}

func TestSendToClientUnknownClientIsNoop(t *testing.T) {
	s := New(time.Hour, nil)
	if err := s.SendToClient("ghost", model.Event{Type: model.EventHeartbeat}); err != nil {
		t.Fatalf("expected no error for an unknown client, got %v", err)
	}
}

func TestCloseDropsClientFromBroadcast(t *testing.T) {
	s := New(time.Hour, nil)
	w := &fakeWriter{}
	unsub := s.Subscribe("c", "", w)
	unsub()

	before := w.String()
	s.Broadcast(model.Event{Type: model.EventChunkProcessed})
	if w.String() != before {
		t.Fatal("a closed client should not receive further broadcasts")
	}
}

func TestBroadcastDropsFailingClient(t *testing.T) {
	s := New(time.Hour, nil)
	w := &fakeWriter{failing: true}
	s.Subscribe("c", "", w)

	s.Broadcast(model.Event{Type: model.EventChunkProcessed})

	s.mu.RLock()
	_, stillThere := s.clients["c"]
	s.mu.RUnlock()
	if stillThere {
		t.Fatal("a client whose write fails should be dropped from the registry")
	}
}
