package queue

import (
	"testing"
	"time"
)

func TestNewSchedulerDefaultsWorkerCount(t *testing.T) {
	s := NewScheduler(nil, nil, 0, nil)
	if s.workers < 1 || s.workers > 10 {
		t.Fatalf("expected default worker count in [1,10], got %d", s.workers)
	}
}

func TestNewSchedulerHonorsExplicitWorkerCount(t *testing.T) {
	s := NewScheduler(nil, nil, 3, nil)
	if s.workers != 3 {
		t.Fatalf("expected explicit worker count to be honored, got %d", s.workers)
	}
}

func TestNotifyIsNonBlockingWhenFull(t *testing.T) {
	s := NewScheduler(nil, nil, 1, nil)
	s.Notify()
	// Second call must not block even though the buffered channel is full.
	done := make(chan struct{})
	go func() {
		s.Notify()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full buffered channel")
	}
	<-s.wakeup // drain the single buffered slot
}
