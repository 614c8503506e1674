// Package openai implements embed.Embedder over github.com/openai/openai-go,
// batching requests up to a configured batch size and falling back to
// per-item calls when a batch call fails, so one bad input doesn't sink its
// batch-mates (spec.md §4.4).
package openai

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/autollama/ingestor/internal/embed"
	"github.com/autollama/ingestor/internal/ingesterr"
	"github.com/autollama/ingestor/internal/retry"
)

type Embedder struct {
	client     *openai.Client
	model      string
	dimensions int
	batchSize  int
}

// New builds an Embedder. modelName defaults to "text-embedding-3-small"
// (1536 dimensions); batchSize defaults to 100 when <= 0.
func New(apiKey, modelName string, dimensions, batchSize int) *Embedder {
	if modelName == "" {
		modelName = "text-embedding-3-small"
	}
	if dimensions <= 0 {
		dimensions = 1536
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Embedder{client: &client, model: modelName, dimensions: dimensions, batchSize: batchSize}
}

func (e *Embedder) Dimensions() int { return e.dimensions }

func (e *Embedder) Embed(ctx context.Context, texts []string) ([]embed.Result, error) {
	out := make([]embed.Result, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		vectors, err := e.embedBatch(ctx, batch)
		if err != nil {
			// Batch failed outright: retry each item individually so a
			// single bad input doesn't sink its batch-mates.
			for i, text := range batch {
				v, ierr := e.embedOne(ctx, text)
				if ierr != nil {
					out[start+i] = embed.Result{Err: ierr}
					continue
				}
				out[start+i] = embed.Result{Vector: v}
			}
			continue
		}
		for i, v := range vectors {
			out[start+i] = embed.Result{Vector: v}
		}
	}
	return out, nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := retry.Do(ctx, retry.AnalyzerEmbedderPolicy, func(ctx context.Context) error {
		resp, cerr := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Model: e.model,
			Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		})
		if cerr != nil {
			return classify(cerr)
		}
		vectors = make([][]float32, len(resp.Data))
		for i, d := range resp.Data {
			vectors[i] = toFloat32(d.Embedding)
		}
		return nil
	})
	return vectors, err
}

func (e *Embedder) embedOne(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := retry.Do(ctx, retry.AnalyzerEmbedderPolicy, func(ctx context.Context) error {
		resp, cerr := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Model: e.model,
			Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		})
		if cerr != nil {
			return classify(cerr)
		}
		if len(resp.Data) == 0 {
			return ingesterr.New("embed.openai", ingesterr.ProviderSchema, errors.New("no embedding data returned"))
		}
		vector = toFloat32(resp.Data[0].Embedding)
		return nil
	})
	return vector, err
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}

func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429:
			return ingesterr.New("embed.openai", ingesterr.ProviderRateLimit, err)
		case apiErr.StatusCode >= 500:
			return ingesterr.New("embed.openai", ingesterr.NetworkTransient, err)
		case apiErr.StatusCode == 401 || apiErr.StatusCode == 403:
			return ingesterr.New("embed.openai", ingesterr.Validation, err)
		}
	}
	return ingesterr.New("embed.openai", ingesterr.Timeout, err)
}
