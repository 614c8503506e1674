package model

import "testing"

func TestChunkIDDeterministic(t *testing.T) {
	a := ChunkID("session-1", 3)
	b := ChunkID("session-1", 3)
	if a != b {
		t.Fatalf("ChunkID not deterministic: %q != %q", a, b)
	}
	if len(a) != 40 {
		t.Fatalf("expected 40-char hex sha1, got %d chars", len(a))
	}
}

func TestChunkIDDistinguishesSessionAndIndex(t *testing.T) {
	base := ChunkID("session-1", 0)
	otherIndex := ChunkID("session-1", 1)
	otherSession := ChunkID("session-2", 0)
	if base == otherIndex {
		t.Fatal("different chunk indexes produced the same id")
	}
	if base == otherSession {
		t.Fatal("different session ids produced the same id")
	}
}

func TestSessionStatusTerminal(t *testing.T) {
	cases := map[SessionStatus]bool{
		SessionProcessing: false,
		SessionCompleted:  true,
		SessionFailed:     true,
		SessionCancelled:  true,
		SessionTimeout:    true,
	}
	for status, want := range cases {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}

func TestJobStatusTerminal(t *testing.T) {
	cases := map[JobStatus]bool{
		JobQueued:     false,
		JobProcessing: false,
		JobRetrying:   false,
		JobCompleted:  true,
		JobFailed:     true,
		JobCancelled:  true,
	}
	for status, want := range cases {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}

func TestSessionDone(t *testing.T) {
	total := 5
	s := &Session{TotalChunks: &total, CompletedChunks: 3, FailedChunks: 1}
	if s.Done() {
		t.Fatal("expected not done at 4/5")
	}
	s.FailedChunks = 2
	if !s.Done() {
		t.Fatal("expected done at 5/5")
	}
}

func TestSessionDoneNilTotal(t *testing.T) {
	s := &Session{CompletedChunks: 10}
	if s.Done() {
		t.Fatal("session with nil TotalChunks should never report done")
	}
}

func TestOptionsClamp(t *testing.T) {
	o := Options{ChunkSize: 10, ChunkOverlap: -5}
	o.Clamp()
	if o.ChunkSize != 100 {
		t.Errorf("ChunkSize floor not applied: got %d", o.ChunkSize)
	}
	if o.ChunkOverlap != 0 {
		t.Errorf("ChunkOverlap floor not applied: got %d", o.ChunkOverlap)
	}

	o2 := Options{ChunkSize: 10000, ChunkOverlap: 9000}
	o2.Clamp()
	if o2.ChunkSize != 5000 {
		t.Errorf("ChunkSize ceiling not applied: got %d", o2.ChunkSize)
	}
	if o2.ChunkOverlap != 500 {
		t.Errorf("ChunkOverlap ceiling not applied: got %d", o2.ChunkOverlap)
	}

	o3 := Options{ChunkSize: 200, ChunkOverlap: 500}
	o3.Clamp()
	if o3.ChunkOverlap != 200 {
		t.Errorf("ChunkOverlap should be capped at ChunkSize when ChunkSize < 500: got %d", o3.ChunkOverlap)
	}
}

func TestContentTypeValid(t *testing.T) {
	if !ContentTypePDF.Valid() {
		t.Fatal("pdf should be valid")
	}
	if ContentType("bogus").Valid() {
		t.Fatal("bogus content type should not be valid")
	}
}
