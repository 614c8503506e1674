// Package embed implements the Embedder (C4): turns chunk text (optionally
// prefixed with a contextual summary) into a fixed-dimension vector, per
// spec.md §4.4. Batch calls report partial failure per-item rather than
// failing the whole batch.
package embed

import "context"

// Result is one item's outcome within a batch embedding call. Exactly one
// of Vector or Err is set.
type Result struct {
	Vector []float32
	Err    error
}

// Embedder embeds a batch of texts, preserving input order in the output
// slice. A provider failure on one item must not fail the others (spec.md
// §4.4's partial-batch-failure rule).
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([]Result, error)
	Dimensions() int
}
