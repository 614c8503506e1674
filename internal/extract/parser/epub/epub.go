// Package epub implements the EPUB Content Source Adapter parser. EPUB is
// just a zip archive of XHTML content documents plus an OPF manifest/spine;
// no library in the reference corpus parses it, so this parser is built
// directly on the standard library (archive/zip + encoding/xml), per the
// task's stdlib-justification rule for concerns nothing in the corpus
// covers. It reads META-INF/container.xml to find the OPF, walks the
// spine in document order, and strips markup from each XHTML document with
// the same tag-stripping helper the HTML parser falls back to.
package epub

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"path"
	"strings"

	"github.com/autollama/ingestor/internal/extract"
	"github.com/autollama/ingestor/internal/extract/parser/htmlstrip"
	"github.com/autollama/ingestor/internal/ingesterr"
)

type Parser struct{}

func New() *Parser { return &Parser{} }

func (p *Parser) CanParse(data []byte, hint string) bool {
	if strings.Contains(hint, "epub") {
		return true
	}
	if !bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		return false
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if f.Name == "mimetype" {
			return true
		}
	}
	return false
}

type container struct {
	RootFiles struct {
		RootFile struct {
			FullPath string `xml:"full-path,attr"`
		} `xml:"rootfile"`
	} `xml:"rootfiles"`
}

type opfPackage struct {
	Metadata struct {
		Title string `xml:"title"`
	} `xml:"metadata"`
	Manifest struct {
		Items []struct {
			ID   string `xml:"id,attr"`
			Href string `xml:"href,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		ItemRefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

func (p *Parser) Parse(_ context.Context, data []byte, _ string) (string, extract.Meta, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", extract.Meta{}, ingesterr.New("epub.Parse", ingesterr.UnsupportedType, err)
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	cf, ok := files["META-INF/container.xml"]
	if !ok {
		return "", extract.Meta{}, ingesterr.New("epub.Parse", ingesterr.UnsupportedType, nil)
	}
	var c container
	if err := decodeZipXML(cf, &c); err != nil {
		return "", extract.Meta{}, ingesterr.New("epub.Parse", ingesterr.UnsupportedType, err)
	}
	opfPath := c.RootFiles.RootFile.FullPath
	opfFile, ok := files[opfPath]
	if !ok {
		return "", extract.Meta{}, ingesterr.New("epub.Parse", ingesterr.UnsupportedType, nil)
	}
	var pkg opfPackage
	if err := decodeZipXML(opfFile, &pkg); err != nil {
		return "", extract.Meta{}, ingesterr.New("epub.Parse", ingesterr.UnsupportedType, err)
	}

	hrefByID := make(map[string]string, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		hrefByID[item.ID] = item.Href
	}
	base := path.Dir(opfPath)

	var sb strings.Builder
	for _, ref := range pkg.Spine.ItemRefs {
		href, ok := hrefByID[ref.IDRef]
		if !ok {
			continue
		}
		full := path.Join(base, href)
		cfile, ok := files[full]
		if !ok {
			continue
		}
		rc, err := cfile.Open()
		if err != nil {
			continue
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		sb.WriteString(htmlstrip.Strip(string(raw)))
		sb.WriteString("\n\n")
	}

	return sb.String(), extract.Meta{ContentType: "epub", Title: pkg.Metadata.Title}, nil
}

func decodeZipXML(f *zip.File, v any) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	dec := xml.NewDecoder(rc)
	dec.Strict = false
	return dec.Decode(v)
}
