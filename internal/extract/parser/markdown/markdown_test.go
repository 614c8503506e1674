package markdown

import (
	"context"
	"strings"
	"testing"
)

func TestParserCanParse(t *testing.T) {
	p := New()
	if !p.CanParse(nil, "markdown") {
		t.Fatal("expected markdown hint to be recognized")
	}
	if !p.CanParse(nil, "md") {
		t.Fatal("expected md hint to be recognized")
	}
	if p.CanParse(nil, "application/pdf") {
		t.Fatal("expected unrelated hint to be rejected")
	}
}

func TestParserParseRendersAndStripsMarkup(t *testing.T) {
	p := New()
	text, meta, err := p.Parse(context.Background(), []byte("# Title\n\nSome **bold** text."), "markdown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(text, "<") || strings.Contains(text, "#") {
		t.Fatalf("expected markup stripped, got %q", text)
	}
	if !strings.Contains(text, "Title") || !strings.Contains(text, "bold") {
		t.Fatalf("expected rendered content preserved, got %q", text)
	}
	if meta.ContentType != "markdown" {
		t.Fatalf("expected ContentType markdown, got %q", meta.ContentType)
	}
}

func TestTextParserCanParse(t *testing.T) {
	p := NewText()
	for _, hint := range []string{"", "text/plain", "txt", "text"} {
		if !p.CanParse(nil, hint) {
			t.Errorf("expected hint %q to be recognized", hint)
		}
	}
	if p.CanParse(nil, "application/pdf") {
		t.Fatal("expected pdf hint to be rejected")
	}
}

func TestTextParserIsPassthrough(t *testing.T) {
	p := NewText()
	text, meta, err := p.Parse(context.Background(), []byte("raw text content"), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "raw text content" {
		t.Fatalf("expected passthrough, got %q", text)
	}
	if meta.ContentType != "text" {
		t.Fatalf("expected ContentType text, got %q", meta.ContentType)
	}
}
