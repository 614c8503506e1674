// Package html implements the HTML Content Source Adapter parser. It
// prefers github.com/go-shiori/go-readability's article extraction (the
// same "find the readable body" job that library exists to do) and falls
// back to github.com/PuerkitoBio/goquery text-node walking when
// readability can't find an article — e.g. for non-article HTML fragments.
package html

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/autollama/ingestor/internal/extract"
	"github.com/autollama/ingestor/internal/extract/parser/htmlstrip"
	"github.com/autollama/ingestor/internal/ingesterr"
)

type Parser struct {
	// SourceURL is used as readability's base URL for resolving relative
	// links; it is best-effort and may be empty for uploaded files.
	SourceURL string
}

func New(sourceURL string) *Parser { return &Parser{SourceURL: sourceURL} }

func (p *Parser) CanParse(data []byte, hint string) bool {
	if strings.Contains(hint, "html") || strings.Contains(hint, "htm") {
		return true
	}
	s := strings.ToLower(string(firstN(data, 512)))
	return strings.Contains(s, "<html") || strings.Contains(s, "<!doctype html")
}

func (p *Parser) Parse(_ context.Context, data []byte, _ string) (string, extract.Meta, error) {
	u, _ := url.Parse(p.SourceURL)
	if u == nil {
		u = &url.URL{}
	}

	article, err := readability.FromReader(strings.NewReader(string(data)), u)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return article.TextContent, extract.Meta{ContentType: "html", Title: article.Title}, nil
	}

	doc, qerr := goquery.NewDocumentFromReader(strings.NewReader(string(data)))
	if qerr != nil {
		// Neither extractor could parse it; fall back to a blunt tag strip
		// rather than failing the whole document.
		return htmlstrip.Strip(string(data)), extract.Meta{ContentType: "html"}, nil
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find("script, style, noscript").Remove()
	text := strings.TrimSpace(doc.Find("body").Text())
	if text == "" {
		return "", extract.Meta{}, ingesterr.New("html.Parse", ingesterr.Internal, nil)
	}
	return text, extract.Meta{ContentType: "html", Title: title}, nil
}

func firstN(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
