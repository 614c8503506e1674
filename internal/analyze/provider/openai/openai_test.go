package openai

import (
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"

	"github.com/autollama/ingestor/internal/analyze"
	"github.com/autollama/ingestor/internal/ingesterr"
)

func TestTruncateLeavesShortStringsAlone(t *testing.T) {
	if got := truncate("short", 100); got != "short" {
		t.Fatalf("truncate should not modify short strings, got %q", got)
	}
}

func TestTruncateCutsAtRuneBoundary(t *testing.T) {
	s := strings.Repeat("é", 10) // multi-byte rune
	got := truncate(s, 3)
	if len([]rune(got)) != 3 {
		t.Fatalf("expected 3 runes, got %d (%q)", len([]rune(got)), got)
	}
}

func TestBuildPromptIncludesContextualSummaryRequestOnlyWhenEnabled(t *testing.T) {
	p := buildPrompt("chunk text", "whole doc", analyze.Options{EnableContextualEmbeddings: false})
	if strings.Contains(p, "contextual_summary") {
		t.Fatal("contextual_summary instruction should be omitted when not enabled")
	}

	p2 := buildPrompt("chunk text", "whole doc", analyze.Options{EnableContextualEmbeddings: true})
	if !strings.Contains(p2, "contextual_summary") {
		t.Fatal("contextual_summary instruction should be present when enabled")
	}
}

func TestBuildPromptIncludesDocumentSummaryOnlyForFirstChunk(t *testing.T) {
	p := buildPrompt("c", "d", analyze.Options{GenerateSummary: true, ChunkIndex: 1})
	if strings.Contains(p, "document_summary") {
		t.Fatal("document_summary instruction should only apply to chunk 0")
	}

	p2 := buildPrompt("c", "d", analyze.Options{GenerateSummary: true, ChunkIndex: 0})
	if !strings.Contains(p2, "document_summary") {
		t.Fatal("document_summary instruction should be present for chunk 0 with GenerateSummary")
	}
}

func TestClassifyMapsStatusCodes(t *testing.T) {
	cases := []struct {
		status int
		want   ingesterr.Kind
	}{
		{429, ingesterr.ProviderRateLimit},
		{500, ingesterr.NetworkTransient},
		{503, ingesterr.NetworkTransient},
		{401, ingesterr.Validation},
		{403, ingesterr.Validation},
	}
	for _, c := range cases {
		apiErr := &openai.Error{StatusCode: c.status}
		got := ingesterr.KindOf(classify(apiErr))
		if got != c.want {
			t.Errorf("classify(status=%d) = %s, want %s", c.status, got, c.want)
		}
	}
}

func TestClassifyNonAPIErrorFallsBackToTimeout(t *testing.T) {
	got := ingesterr.KindOf(classify(errors.New("dial tcp: connection refused")))
	if got != ingesterr.Timeout {
		t.Fatalf("expected Timeout fallback for a non-API error, got %s", got)
	}
}
