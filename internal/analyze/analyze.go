// Package analyze implements the LLM Analyzer (C3): per-chunk sentiment,
// category, topics, entities and contextual-summary analysis.
package analyze

import (
	"context"

	"github.com/autollama/ingestor/internal/model"
)

// Options controls analysis behavior (spec.md §4.3/§6.2).
type Options struct {
	EnableContextualEmbeddings bool
	// GenerateSummary, when true and ChunkIndex == 0, asks the analyzer to
	// also produce a whole-document summary (spec.md §9's Open-Question
	// resolution: returned on chunk 0 only).
	GenerateSummary bool
	ChunkIndex      int
}

// Analyzer is the C3 contract: Analyze(chunk_text, whole_document_text,
// options) -> Analysis.
type Analyzer interface {
	Analyze(ctx context.Context, chunkText, wholeDocText string, opts Options) (model.Analysis, error)
}

// Default returns the neutral default Analysis (sentiment "neutral",
// category "general", content type "text", technical level "general") used
// when a provider's output
// can't be coerced into the schema (§4.3: the analyzer must coerce invalid
// output into a default Analysis and mark AnalysisError rather than
// throwing).
func Default(reason string) model.Analysis {
	return model.Analysis{
		Sentiment:      "neutral",
		Category:       "general",
		ContentType:    "text",
		TechnicalLevel: "general",
		AnalysisError:  reason,
	}
}
