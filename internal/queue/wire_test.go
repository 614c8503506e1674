package queue

import (
	"testing"

	"github.com/autollama/ingestor/internal/model"
)

func TestPayloadRoundTrip(t *testing.T) {
	want := model.JobPayload{
		JobType: model.JobTypeURLProcessing,
		URL:     "https://example.com/doc",
	}
	want.Options.ChunkSize = 800
	want.Options.EnableContextualEmbeddings = true

	raw, err := EncodePayload(want)
	if err != nil {
		t.Fatalf("EncodePayload: %v", err)
	}
	got, err := DecodePayload(raw)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if got != want {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestMarshalResult(t *testing.T) {
	r := model.JobResult{SessionID: "s1", CompletedChunks: 4, FailedChunks: 1, ErrorMessage: "partial"}
	raw, err := marshalResult(r)
	if err != nil {
		t.Fatalf("marshalResult: %v", err)
	}
	if len(raw) == 0 {
		t.Fatal("expected non-empty marshaled result")
	}
}

func TestDecodePayloadRejectsGarbage(t *testing.T) {
	if _, err := DecodePayload([]byte("not json")); err == nil {
		t.Fatal("expected an error decoding malformed payload bytes")
	}
}
