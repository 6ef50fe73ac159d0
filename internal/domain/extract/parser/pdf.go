// Package parser reads report PDFs page by page and recovers their tables
// from the positions of the text on each page.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrEmptyPage is returned for pages without a content stream.
var ErrEmptyPage = errors.New("parser: page has no content")

// Page is one page of a tabular report.
type Page interface {
	Text() (string, error)
	Tables() ([][][]string, error)
}

// Document is a paged tabular report.
type Document interface {
	NumPages() int
	Page(n int) (Page, error)
}

// PDFDocument is a Document backed by an in-memory PDF file.
type PDFDocument struct {
	reader *pdf.Reader
	layout LayoutConfig
}

// Open parses PDF bytes.
func Open(data []byte, layout LayoutConfig) (*PDFDocument, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	return &PDFDocument{reader: r, layout: layout}, nil
}

// NumPages returns the page count.
func (d *PDFDocument) NumPages() int {
	return d.reader.NumPage()
}

// Page returns page n, 1-indexed.
func (d *PDFDocument) Page(n int) (Page, error) {
	p := d.reader.Page(n)
	if p.V.IsNull() {
		return nil, fmt.Errorf("page %d: %w", n, ErrEmptyPage)
	}
	return &pdfPage{page: p, layout: d.layout}, nil
}

type pdfPage struct {
	page   pdf.Page
	layout LayoutConfig
}

// Text returns the page text rebuilt from glyph positions, so words set
// apart by text moves keep their spacing. Pages without positioned glyphs
// fall back to the content stream's plain text.
func (p *pdfPage) Text() (text string, err error) {
	defer recoverPage(&err)

	if text = PlainText(p.glyphs(), p.layout); strings.TrimSpace(text) != "" {
		return text, nil
	}
	return p.page.GetPlainText(nil)
}

// Tables recovers text-aligned tables from the page.
func (p *pdfPage) Tables() (tables [][][]string, err error) {
	defer recoverPage(&err)
	return DetectTables(p.glyphs(), p.layout), nil
}

func (p *pdfPage) glyphs() []Glyph {
	content := p.page.Content()
	glyphs := make([]Glyph, 0, len(content.Text))
	for _, t := range content.Text {
		glyphs = append(glyphs, Glyph{X: t.X, Y: t.Y, W: t.W, FontSize: t.FontSize, S: t.S})
	}
	return glyphs
}

// The pdf package panics on malformed content streams.
func recoverPage(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("reading page: %v", r)
	}
}
