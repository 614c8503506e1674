package cache

import (
	"context"
	"testing"

	"github.com/autollama/ingestor/internal/embed"
)

// countingEmbedder returns a deterministic vector per text and counts how
// many times Embed was invoked, so tests can assert on cache hit/miss
// behavior.
type countingEmbedder struct {
	calls int
	dims  int
}

func (c *countingEmbedder) Dimensions() int { return c.dims }

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([]embed.Result, error) {
	c.calls++
	out := make([]embed.Result, len(texts))
	for i, t := range texts {
		out[i] = embed.Result{Vector: []float32{float32(len(t))}}
	}
	return out, nil
}

func TestCachedEmbedderHitsCacheOnRepeat(t *testing.T) {
	inner := &countingEmbedder{dims: 1}
	c := New(inner, nil, 100, 0, nil)

	ctx := context.Background()
	if _, err := c.Embed(ctx, []string{"hello world"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.Embed(ctx, []string{"hello world"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected the underlying embedder to run exactly once, got %d calls", inner.calls)
	}
}

func TestCachedEmbedderOnlyCallsProviderForMisses(t *testing.T) {
	inner := &countingEmbedder{dims: 1}
	c := New(inner, nil, 100, 0, nil)
	ctx := context.Background()

	if _, err := c.Embed(ctx, []string{"a", "b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected one batched call for two misses, got %d", inner.calls)
	}

	results, err := c.Embed(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected exactly one more call for the single new miss 'c', got %d total", inner.calls)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
}

func TestCachedEmbedderDimensionsDelegates(t *testing.T) {
	inner := &countingEmbedder{dims: 1536}
	c := New(inner, nil, 100, 0, nil)
	if c.Dimensions() != 1536 {
		t.Fatalf("expected Dimensions() to delegate to the wrapped embedder, got %d", c.Dimensions())
	}
}

func TestLRUEvictsOldestBeyondCapacity(t *testing.T) {
	l := newLRU(2)
	l.put("a", []float32{1})
	l.put("b", []float32{2})
	l.put("c", []float32{3})

	if _, ok := l.get("a"); ok {
		t.Fatal("expected 'a' to have been evicted as the oldest entry")
	}
	if _, ok := l.get("b"); !ok {
		t.Fatal("expected 'b' to still be cached")
	}
	if _, ok := l.get("c"); !ok {
		t.Fatal("expected 'c' to still be cached")
	}
}

func TestLRUGetPromotesToFront(t *testing.T) {
	l := newLRU(2)
	l.put("a", []float32{1})
	l.put("b", []float32{2})
	l.get("a") // promote a so b becomes the eviction candidate
	l.put("c", []float32{3})

	if _, ok := l.get("b"); ok {
		t.Fatal("expected 'b' to be evicted after 'a' was promoted")
	}
	if _, ok := l.get("a"); !ok {
		t.Fatal("expected 'a' to survive since it was promoted")
	}
}
