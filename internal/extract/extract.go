// Package extract implements the Content Source Adapters (C1): fetching or
// decoding raw bytes into plain text with provenance, dispatching to a
// format-specific Parser chosen from a registry (Design Note 9: dynamic
// dispatch over parsers via interface abstraction and registry lookup, not
// runtime string reflection).
package extract

import (
	"bytes"
	"context"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/autollama/ingestor/internal/ingesterr"
)

// Meta is the provenance/metadata a Parser returns alongside extracted text.
type Meta struct {
	Title       string
	ContentType string // one of model.ContentType's string values
}

// Parser is the capability interface every format adapter implements
// (Design Note 9).
type Parser interface {
	// CanParse reports whether this parser can handle the given bytes,
	// given a MIME-type or file-extension hint.
	CanParse(data []byte, hint string) bool
	Parse(ctx context.Context, data []byte, hint string) (text string, meta Meta, err error)
}

// Registry resolves a Parser by declared MIME type, file extension, then
// content sniffing.
type Registry struct {
	byMIME map[string]Parser
	order  []Parser // fallback probe order
}

// NewRegistry builds an empty registry; call Register for each parser.
func NewRegistry() *Registry {
	return &Registry{byMIME: make(map[string]Parser)}
}

// Register associates a parser with one or more MIME types/extensions and
// adds it to the sniff-probe fallback order.
func (r *Registry) Register(p Parser, hints ...string) {
	for _, h := range hints {
		r.byMIME[strings.ToLower(h)] = p
	}
	r.order = append(r.order, p)
}

// Resolve picks a Parser for data, trying the declared hint first (MIME
// type or filename extension), then probing each registered parser's
// CanParse, per spec.md §4.1.
func (r *Registry) Resolve(data []byte, hint string) (Parser, string, error) {
	h := strings.ToLower(strings.TrimSpace(hint))
	if h != "" {
		if p, ok := r.byMIME[h]; ok {
			return p, h, nil
		}
		if ext := strings.TrimPrefix(filepath.Ext(h), "."); ext != "" {
			if p, ok := r.byMIME[ext]; ok {
				return p, ext, nil
			}
		}
	}
	for _, p := range r.order {
		if p.CanParse(data, h) {
			return p, h, nil
		}
	}
	return nil, h, ingesterr.New("extract.Resolve", ingesterr.UnsupportedType, nil)
}

// Source is the sum type Fetch accepts: either a URL to retrieve or an
// in-memory byte buffer with a declared MIME type (an uploaded file).
type Source struct {
	URL          string
	Bytes        []byte
	DeclaredMIME string
	Filename     string
}

func (s Source) isURL() bool { return s.URL != "" }

// Result is what Fetch returns: plain text plus provenance.
type Result struct {
	Text string
	Meta Meta
}

// Extractor composes the URL fetcher and the parser registry into the
// single C1 contract: Fetch(source) -> (text, metadata, error).
type Extractor struct {
	registry *Registry
	fetcher  *Fetcher
}

func New(registry *Registry, fetcher *Fetcher) *Extractor {
	return &Extractor{registry: registry, fetcher: fetcher}
}

// Fetch resolves a Source into text+metadata, classifying every failure
// into one of the operational kinds from spec.md §4.1.
func (e *Extractor) Fetch(ctx context.Context, src Source) (Result, error) {
	var data []byte
	hint := src.DeclaredMIME
	if hint == "" {
		hint = src.Filename
	}

	if src.isURL() {
		body, contentType, err := e.fetcher.Get(ctx, src.URL)
		if err != nil {
			return Result{}, err
		}
		data = body
		if hint == "" {
			hint = contentType
		}
		if hint == "" {
			hint = "html"
		}
	} else {
		data = src.Bytes
	}

	if err := sniffBinary(data); err != nil {
		return Result{}, err
	}
	data = stripBOM(data)

	p, resolvedHint, err := e.registry.Resolve(data, hint)
	if err != nil {
		return Result{}, err
	}
	text, meta, err := p.Parse(ctx, data, resolvedHint)
	if err != nil {
		return Result{}, ingesterr.New("extract.Parse", ingesterr.Internal, err)
	}
	if meta.ContentType == "" {
		meta.ContentType = resolvedHint
	}
	return Result{Text: text, Meta: meta}, nil
}

// stripBOM removes a leading UTF-8 byte-order mark, per spec.md §4.1.
func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
}

// sniffBinary rejects buffers with a NUL byte in the first 8 KiB as binary,
// per spec.md §4.1.
func sniffBinary(data []byte) error {
	probe := data
	if len(probe) > 8192 {
		probe = probe[:8192]
	}
	if bytes.IndexByte(probe, 0) >= 0 {
		return ingesterr.New("extract.sniffBinary", ingesterr.UnsupportedType, nil)
	}
	return nil
}

// DetectMIME is a small helper parsers/fetchers can use to fall back to
// net/http's content sniffing when no hint is usable.
func DetectMIME(data []byte) string {
	return http.DetectContentType(data)
}
