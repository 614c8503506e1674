// Package csvdoc implements the CSV Content Source Adapter parser: stdlib
// encoding/csv plus delimiter auto-detection over the first 10 rows, per
// spec.md §4.1. No corpus dependency covers delimiter sniffing or the
// structured-vs-narrative rendering choice, so this parser is built
// directly on the standard library (stdlib-justification rule) rather than
// reaching for an unrelated ecosystem CSV library that wouldn't add
// anything here. Default rendering is structured (one row -> one line of
// "col: value" pairs), per spec.md §9's Open-Question resolution.
package csvdoc

import (
	"context"
	"encoding/csv"
	"strings"

	"github.com/autollama/ingestor/internal/extract"
	"github.com/autollama/ingestor/internal/ingesterr"
)

var candidateDelimiters = []rune{',', ';', '\t', '|'}

type Parser struct{}

func New() *Parser { return &Parser{} }

func (p *Parser) CanParse(data []byte, hint string) bool {
	if strings.Contains(hint, "csv") {
		return true
	}
	return false
}

func (p *Parser) Parse(_ context.Context, data []byte, _ string) (string, extract.Meta, error) {
	delim := detectDelimiter(string(data))

	r := csv.NewReader(strings.NewReader(string(data)))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return "", extract.Meta{}, ingesterr.New("csvdoc.Parse", ingesterr.Internal, err)
	}
	if len(rows) == 0 {
		return "", extract.Meta{ContentType: "csv"}, nil
	}

	header := rows[0]
	var sb strings.Builder
	for _, row := range rows[1:] {
		for i, cell := range row {
			col := ""
			if i < len(header) {
				col = header[i]
			}
			if col != "" {
				sb.WriteString(col)
				sb.WriteString(": ")
			}
			sb.WriteString(cell)
			if i < len(row)-1 {
				sb.WriteString(", ")
			}
		}
		sb.WriteString("\n")
	}

	return sb.String(), extract.Meta{ContentType: "csv"}, nil
}

// detectDelimiter picks the candidate delimiter with the most consistent
// field count across the non-empty lines among the first 10 lines, per
// spec.md §4.1.
func detectDelimiter(data string) rune {
	lines := strings.Split(data, "\n")
	if len(lines) > 10 {
		lines = lines[:10]
	}

	best := candidateDelimiters[0]
	bestScore := -1
	for _, d := range candidateDelimiters {
		score := consistencyScore(lines, d)
		if score > bestScore {
			bestScore = score
			best = d
		}
	}
	return best
}

// consistencyScore counts fields-per-line agreement: higher is better.
func consistencyScore(lines []string, delim rune) int {
	counts := map[int]int{}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := strings.Count(line, string(delim))
		counts[n]++
	}
	best := 0
	for n, c := range counts {
		if n == 0 {
			continue
		}
		if c > best {
			best = c
		}
	}
	return best
}
