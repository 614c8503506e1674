// Package markdown implements the Markdown/plain-text Content Source
// Adapter parsers. Markdown is rendered to HTML with
// github.com/yuin/goldmark and then flattened with the same tag-stripping
// helper the HTML parser falls back to, so headings/lists/emphasis survive
// as plain text rather than raw markup. Plain text is a passthrough.
package markdown

import (
	"bytes"
	"context"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/autollama/ingestor/internal/extract"
	"github.com/autollama/ingestor/internal/extract/parser/htmlstrip"
	"github.com/autollama/ingestor/internal/ingesterr"
)

// Parser implements extract.Parser for text/markdown.
type Parser struct {
	md goldmark.Markdown
}

func New() *Parser { return &Parser{md: goldmark.New()} }

func (p *Parser) CanParse(_ []byte, hint string) bool {
	return strings.Contains(hint, "markdown") || strings.Contains(hint, "md")
}

func (p *Parser) Parse(_ context.Context, data []byte, _ string) (string, extract.Meta, error) {
	var buf bytes.Buffer
	if err := p.md.Convert(data, &buf); err != nil {
		return "", extract.Meta{}, ingesterr.New("markdown.Parse", ingesterr.Internal, err)
	}
	return htmlstrip.Strip(buf.String()), extract.Meta{ContentType: "markdown"}, nil
}

// TextParser implements extract.Parser for plain text: a passthrough after
// the shared BOM-stripping/NUL-sniffing already applied by extract.Fetch.
type TextParser struct{}

func NewText() *TextParser { return &TextParser{} }

func (p *TextParser) CanParse(_ []byte, hint string) bool {
	return hint == "" || strings.Contains(hint, "text/plain") || hint == "txt" || hint == "text"
}

func (p *TextParser) Parse(_ context.Context, data []byte, _ string) (string, extract.Meta, error) {
	return string(data), extract.Meta{ContentType: "text"}, nil
}
