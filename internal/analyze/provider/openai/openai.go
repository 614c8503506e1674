// Package openai implements analyze.Analyzer over github.com/openai/openai-go,
// requesting a JSON-object chat completion and coercing invalid output into
// the default Analysis per spec.md §4.3, wrapped in the shared retry policy
// (base 1s, cap 30s, ±20% jitter, 3 attempts).
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/autollama/ingestor/internal/analyze"
	"github.com/autollama/ingestor/internal/ingesterr"
	"github.com/autollama/ingestor/internal/model"
	"github.com/autollama/ingestor/internal/retry"
)

// Analyzer implements analyze.Analyzer over the OpenAI chat-completions API.
type Analyzer struct {
	client *openai.Client
	model  string
}

// New builds an Analyzer using apiKey; model defaults to "gpt-4o-mini" to
// keep analysis cheap per-chunk, matching the cost-consciousness of the
// teacher's Ollama-backed analyzers.
func New(apiKey, modelName string) *Analyzer {
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Analyzer{client: &client, model: modelName}
}

type schema struct {
	Sentiment         string   `json:"sentiment"`
	Category          string   `json:"category"`
	ContentType       string   `json:"content_type"`
	TechnicalLevel    string   `json:"technical_level"`
	MainTopics        []string `json:"main_topics"`
	KeyConcepts       string   `json:"key_concepts"`
	Emotions          []string `json:"emotions"`
	Tags              string   `json:"tags"`
	People            []string `json:"people"`
	Organizations     []string `json:"organizations"`
	Locations         []string `json:"locations"`
	ContextualSummary string   `json:"contextual_summary"`
	DocumentSummary   string   `json:"document_summary"`
}

func (a *Analyzer) Analyze(ctx context.Context, chunkText, wholeDocText string, opts analyze.Options) (model.Analysis, error) {
	var out model.Analysis
	err := retry.Do(ctx, retry.AnalyzerEmbedderPolicy, func(ctx context.Context) error {
		result, rerr := a.call(ctx, chunkText, wholeDocText, opts)
		if rerr != nil {
			return rerr
		}
		out = result
		return nil
	})
	if err != nil && ingesterr.Retryable(err) {
		return analyze.Default(err.Error()), nil
	}
	if err != nil {
		return analyze.Default(err.Error()), nil
	}
	return out, nil
}

func (a *Analyzer) call(ctx context.Context, chunkText, wholeDocText string, opts analyze.Options) (model.Analysis, error) {
	prompt := buildPrompt(chunkText, wholeDocText, opts)

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: a.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are a document analysis engine. Respond with a single JSON object matching the requested schema, nothing else."),
			openai.UserMessage(prompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return model.Analysis{}, classify(err)
	}
	if len(resp.Choices) == 0 {
		return model.Analysis{}, ingesterr.New("openai.Analyze", ingesterr.ProviderSchema, errors.New("no choices returned"))
	}

	var s schema
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &s); err != nil {
		return model.Analysis{}, ingesterr.New("openai.Analyze", ingesterr.ProviderSchema, err)
	}

	out := model.Analysis{
		Sentiment:      s.Sentiment,
		Category:       s.Category,
		ContentType:    s.ContentType,
		TechnicalLevel: s.TechnicalLevel,
		MainTopics:     s.MainTopics,
		KeyConcepts:    s.KeyConcepts,
		Emotions:       s.Emotions,
		Tags:           s.Tags,
		KeyEntities: model.KeyEntities{
			People:        s.People,
			Organizations: s.Organizations,
			Locations:     s.Locations,
		},
	}
	if opts.EnableContextualEmbeddings {
		out.ContextualSummary = s.ContextualSummary
	}
	if opts.GenerateSummary && opts.ChunkIndex == 0 {
		out.DocumentSummary = s.DocumentSummary
	}
	return out, nil
}

func buildPrompt(chunkText, wholeDocText string, opts analyze.Options) string {
	var sb strings.Builder
	sb.WriteString("Whole document (context only, do not analyze directly):\n")
	sb.WriteString(truncate(wholeDocText, 8000))
	sb.WriteString("\n\nChunk to analyze:\n")
	sb.WriteString(chunkText)
	if opts.EnableContextualEmbeddings {
		sb.WriteString("\n\nAlso include a 1-2 sentence contextual_summary describing how this chunk fits within the whole document.")
	}
	if opts.GenerateSummary && opts.ChunkIndex == 0 {
		sb.WriteString("\n\nAlso include a document_summary field summarizing the entire document.")
	}
	return sb.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// classify maps an OpenAI SDK error into an ingesterr.Kind, per spec.md §4.3.
func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429:
			return ingesterr.New("openai.Analyze", ingesterr.ProviderRateLimit, err)
		case apiErr.StatusCode >= 500:
			return ingesterr.New("openai.Analyze", ingesterr.NetworkTransient, err)
		case apiErr.StatusCode == 401 || apiErr.StatusCode == 403:
			return ingesterr.New("openai.Analyze", ingesterr.Validation, err)
		}
	}
	return ingesterr.New("openai.Analyze", ingesterr.Timeout, err)
}
