package epub

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/autollama/ingestor/internal/ingesterr"
)

const containerXML = `<?xml version="1.0"?>
<container><rootfiles><rootfile full-path="OEBPS/content.opf"/></rootfiles></container>`

const opfXML = `<?xml version="1.0"?>
<package><metadata><title>Test Book</title></metadata>
<manifest><item id="ch1" href="ch1.xhtml"/></manifest>
<spine><itemref idref="ch1"/></spine></package>`

const chapterXHTML = `<html><body><p>Hello from chapter one.</p></body></html>`

func buildEPUB(t *testing.T) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)

	mustWrite := func(name, content string) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	mustWrite("mimetype", "application/epub+zip")
	mustWrite("META-INF/container.xml", containerXML)
	mustWrite("OEBPS/content.opf", opfXML)
	mustWrite("OEBPS/ch1.xhtml", chapterXHTML)

	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestCanParseRecognizesEPUBZip(t *testing.T) {
	p := New()
	data := buildEPUB(t)
	if !p.CanParse(data, "") {
		t.Fatal("expected a zip containing a mimetype entry to be recognized as epub")
	}
	if p.CanParse([]byte("PK\x03\x04not really a zip"), "") {
		t.Fatal("expected an invalid zip to be rejected")
	}
	if !p.CanParse(nil, "application/epub+zip") {
		t.Fatal("expected epub hint to be recognized")
	}
}

func TestParseWalksSpineInOrder(t *testing.T) {
	p := New()
	data := buildEPUB(t)
	text, meta, err := p.Parse(context.Background(), data, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "Hello from chapter one.") {
		t.Fatalf("expected chapter content extracted, got %q", text)
	}
	if meta.ContentType != "epub" {
		t.Fatalf("expected ContentType epub, got %q", meta.ContentType)
	}
	if meta.Title != "Test Book" {
		t.Fatalf("expected title from OPF metadata, got %q", meta.Title)
	}
}

func TestParseRejectsNonZipInput(t *testing.T) {
	p := New()
	_, _, err := p.Parse(context.Background(), []byte("not a zip"), "")
	if ingesterr.KindOf(err) != ingesterr.UnsupportedType {
		t.Fatalf("expected UnsupportedType, got %v", err)
	}
}

func TestParseRejectsZipMissingContainerXML(t *testing.T) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	w, _ := zw.Create("mimetype")
	w.Write([]byte("application/epub+zip"))
	zw.Close()

	p := New()
	_, _, err := p.Parse(context.Background(), buf.Bytes(), "")
	if ingesterr.KindOf(err) != ingesterr.UnsupportedType {
		t.Fatalf("expected UnsupportedType for a zip missing container.xml, got %v", err)
	}
}
