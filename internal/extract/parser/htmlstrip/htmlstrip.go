// Package htmlstrip provides a small, dependency-free "strip markup, keep
// text" helper shared by the EPUB parser (whose XHTML content documents
// need the same treatment as the HTML parser's fallback path) and the HTML
// parser's last-resort path when goquery cannot parse the document.
package htmlstrip

import (
	"html"
	"regexp"
	"strings"
)

var (
	scriptStyle = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	blockTags   = regexp.MustCompile(`(?i)</?(p|div|br|li|tr|h[1-6]|section|article)[^>]*>`)
	anyTag      = regexp.MustCompile(`(?s)<[^>]*>`)
	blankRuns   = regexp.MustCompile(`\n{3,}`)
)

// Strip removes all markup from doc, collapsing block-level tags into
// newlines so paragraph structure survives for the Chunker's boundary
// heuristics.
func Strip(doc string) string {
	s := scriptStyle.ReplaceAllString(doc, "")
	s = blockTags.ReplaceAllString(s, "\n")
	s = anyTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
