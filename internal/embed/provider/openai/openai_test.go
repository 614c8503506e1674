package openai

import (
	"errors"
	"testing"

	"github.com/openai/openai-go"

	"github.com/autollama/ingestor/internal/ingesterr"
)

func TestNewDefaults(t *testing.T) {
	e := New("key", "", 0, 0)
	if e.dimensions != 1536 {
		t.Errorf("dimensions default = %d, want 1536", e.dimensions)
	}
	if e.batchSize != 100 {
		t.Errorf("batchSize default = %d, want 100", e.batchSize)
	}
	if e.Dimensions() != 1536 {
		t.Errorf("Dimensions() = %d, want 1536", e.Dimensions())
	}
}

func TestNewHonorsExplicitValues(t *testing.T) {
	e := New("key", "custom-model", 256, 10)
	if e.model != "custom-model" || e.dimensions != 256 || e.batchSize != 10 {
		t.Fatalf("explicit values not honored: %+v", e)
	}
}

func TestToFloat32Converts(t *testing.T) {
	in := []float64{1.5, -2.25, 0}
	out := toFloat32(in)
	if len(out) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(out))
	}
	if out[0] != 1.5 || out[1] != -2.25 || out[2] != 0 {
		t.Fatalf("unexpected conversion: %v", out)
	}
}

func TestClassifyMapsStatusCodes(t *testing.T) {
	cases := []struct {
		status int
		want   ingesterr.Kind
	}{
		{429, ingesterr.ProviderRateLimit},
		{500, ingesterr.NetworkTransient},
		{401, ingesterr.Validation},
	}
	for _, c := range cases {
		got := ingesterr.KindOf(classify(&openai.Error{StatusCode: c.status}))
		if got != c.want {
			t.Errorf("classify(status=%d) = %s, want %s", c.status, got, c.want)
		}
	}
}

func TestClassifyNonAPIErrorFallsBackToTimeout(t *testing.T) {
	if got := ingesterr.KindOf(classify(errors.New("boom"))); got != ingesterr.Timeout {
		t.Fatalf("expected Timeout fallback, got %s", got)
	}
}
