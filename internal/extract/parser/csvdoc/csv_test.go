package csvdoc

import (
	"context"
	"strings"
	"testing"
)

func TestCanParse(t *testing.T) {
	p := New()
	if !p.CanParse(nil, "text/csv") {
		t.Fatal("expected csv hint to be recognized")
	}
	if p.CanParse(nil, "application/json") {
		t.Fatal("expected unrelated hint rejected")
	}
}

func TestParseCommaDelimited(t *testing.T) {
	p := New()
	data := "name,age\nAlice,30\nBob,25\n"
	text, meta, err := p.Parse(context.Background(), []byte(data), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.ContentType != "csv" {
		t.Fatalf("expected ContentType csv, got %q", meta.ContentType)
	}
	if !strings.Contains(text, "name: Alice") || !strings.Contains(text, "age: 30") {
		t.Fatalf("expected structured column:value rendering, got %q", text)
	}
}

func TestParseDetectsSemicolonDelimiter(t *testing.T) {
	p := New()
	data := "name;age\nAlice;30\nBob;25\n"
	text, _, err := p.Parse(context.Background(), []byte(data), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "name: Alice") {
		t.Fatalf("expected semicolon delimiter detected and parsed, got %q", text)
	}
}

func TestParseEmptyInput(t *testing.T) {
	p := New()
	text, meta, err := p.Parse(context.Background(), []byte(""), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty text for empty input, got %q", text)
	}
	if meta.ContentType != "csv" {
		t.Fatalf("expected ContentType csv even for empty input, got %q", meta.ContentType)
	}
}

func TestDetectDelimiterPrefersMostConsistentField(t *testing.T) {
	data := "a,b,c\n1,2,3\n4,5,6\n"
	if got := detectDelimiter(data); got != ',' {
		t.Fatalf("expected comma delimiter detected, got %q", got)
	}
}
