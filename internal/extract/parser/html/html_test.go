package html

import (
	"context"
	"strings"
	"testing"
)

func TestCanParse(t *testing.T) {
	p := New("")
	if !p.CanParse(nil, "text/html") {
		t.Fatal("expected html hint to be recognized")
	}
	if !p.CanParse([]byte("<!DOCTYPE html><html></html>"), "") {
		t.Fatal("expected doctype sniff to be recognized")
	}
	if p.CanParse([]byte("just plain text"), "") {
		t.Fatal("expected plain text rejected")
	}
}

func TestFirstN(t *testing.T) {
	if got := string(firstN([]byte("hello"), 3)); got != "hel" {
		t.Fatalf("expected truncation to 3 bytes, got %q", got)
	}
	if got := string(firstN([]byte("hi"), 10)); got != "hi" {
		t.Fatalf("expected short input returned unchanged, got %q", got)
	}
}

func TestParseExtractsBodyTextViaFallback(t *testing.T) {
	p := New("")
	doc := `<html><head><title>Untitled</title><script>evil()</script></head>` +
		`<body><div>short fragment</div></body></html>`
	text, meta, err := p.Parse(context.Background(), []byte(doc), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "short fragment") {
		t.Fatalf("expected body text extracted, got %q", text)
	}
	if meta.ContentType != "html" {
		t.Fatalf("expected ContentType html, got %q", meta.ContentType)
	}
}
