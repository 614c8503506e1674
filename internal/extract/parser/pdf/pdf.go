// Package pdf implements the PDF Content Source Adapter parser, grounded on
// github.com/ledongthuc/pdf, extracting page text in document order.
package pdf

import (
	"bytes"
	"context"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/autollama/ingestor/internal/extract"
	"github.com/autollama/ingestor/internal/ingesterr"
)

// Parser implements extract.Parser for application/pdf.
type Parser struct{}

func New() *Parser { return &Parser{} }

func (p *Parser) CanParse(data []byte, hint string) bool {
	if strings.Contains(hint, "pdf") {
		return true
	}
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

func (p *Parser) Parse(_ context.Context, data []byte, _ string) (string, extract.Meta, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", extract.Meta{}, ingesterr.New("pdf.Parse", ingesterr.UnsupportedType, err)
	}

	var sb strings.Builder
	n := reader.NumPage()
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page (e.g. scanned image-only) shouldn't
			// fail the whole document; skip it and keep going.
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}

	return sb.String(), extract.Meta{ContentType: "pdf"}, nil
}
