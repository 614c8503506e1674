// Package docx implements the DOCX Content Source Adapter parser, grounded
// on github.com/fumiama/go-docx, walking paragraphs and runs into a flat
// text stream in document order.
package docx

import (
	"bytes"
	"context"
	"strings"

	godocx "github.com/fumiama/go-docx"

	"github.com/autollama/ingestor/internal/extract"
	"github.com/autollama/ingestor/internal/ingesterr"
)

// Parser implements extract.Parser for
// application/vnd.openxmlformats-officedocument.wordprocessingml.document.
type Parser struct{}

func New() *Parser { return &Parser{} }

func (p *Parser) CanParse(data []byte, hint string) bool {
	if strings.Contains(hint, "docx") || strings.Contains(hint, "wordprocessingml") {
		return true
	}
	// DOCX is a zip archive; look for the local-file-header magic.
	return bytes.HasPrefix(data, []byte("PK\x03\x04"))
}

func (p *Parser) Parse(_ context.Context, data []byte, _ string) (string, extract.Meta, error) {
	doc, err := godocx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", extract.Meta{}, ingesterr.New("docx.Parse", ingesterr.UnsupportedType, err)
	}

	var sb strings.Builder
	for _, item := range doc.Document.Body.Items {
		switch para := item.(type) {
		case *godocx.Paragraph:
			writeParagraphText(&sb, para)
			sb.WriteString("\n")
		case *godocx.Table:
			writeTableText(&sb, para)
		}
	}

	return sb.String(), extract.Meta{ContentType: "docx"}, nil
}

func writeParagraphText(sb *strings.Builder, para *godocx.Paragraph) {
	for _, child := range para.Children {
		if run, ok := child.(*godocx.Run); ok && run != nil {
			sb.WriteString(run.Text)
		}
	}
}

func writeTableText(sb *strings.Builder, tbl *godocx.Table) {
	for _, row := range tbl.TableRows {
		for _, cell := range row.TableCells {
			for _, item := range cell.Paragraphs {
				writeParagraphText(sb, item)
				sb.WriteString(" | ")
			}
		}
		sb.WriteString("\n")
	}
}
