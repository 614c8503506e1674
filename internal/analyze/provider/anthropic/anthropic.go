// Package anthropic implements analyze.Analyzer over
// github.com/anthropics/anthropic-sdk-go, the second of the two
// interchangeable C3 providers (spec.md §4.3). It prompts for a JSON object
// and coerces unparseable output into analyze.Default rather than failing
// the chunk.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/autollama/ingestor/internal/analyze"
	"github.com/autollama/ingestor/internal/ingesterr"
	"github.com/autollama/ingestor/internal/model"
	"github.com/autollama/ingestor/internal/retry"
)

type Analyzer struct {
	client *anthropic.Client
	model  anthropic.Model
}

// New builds an Analyzer using apiKey; modelName defaults to Claude's
// fastest current tier since analysis runs once per chunk.
func New(apiKey, modelName string) *Analyzer {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	m := anthropic.Model(modelName)
	if modelName == "" {
		m = anthropic.ModelClaude3_5HaikuLatest
	}
	return &Analyzer{client: &client, model: m}
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
	if err != nil {
		return analyze.Default(err.Error()), nil
	}
	return out, nil
}

func (a *Analyzer) call(ctx context.Context, chunkText, wholeDocText string, opts analyze.Options) (model.Analysis, error) {
	prompt := buildPrompt(chunkText, wholeDocText, opts)

	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: "You are a document analysis engine. Respond with a single JSON object matching the requested schema, nothing else. No markdown fences."},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return model.Analysis{}, classify(err)
	}
	if len(msg.Content) == 0 {
		return model.Analysis{}, ingesterr.New("anthropic.Analyze", ingesterr.ProviderSchema, errors.New("empty response content"))
	}

	raw := strings.TrimSpace(msg.Content[0].Text)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var s schema
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return model.Analysis{}, ingesterr.New("anthropic.Analyze", ingesterr.ProviderSchema, err)
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

func classify(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429:
			return ingesterr.New("anthropic.Analyze", ingesterr.ProviderRateLimit, err)
		case apiErr.StatusCode >= 500:
			return ingesterr.New("anthropic.Analyze", ingesterr.NetworkTransient, err)
		case apiErr.StatusCode == 401 || apiErr.StatusCode == 403:
			return ingesterr.New("anthropic.Analyze", ingesterr.Validation, err)
		}
	}
	return ingesterr.New("anthropic.Analyze", ingesterr.Timeout, err)
}
