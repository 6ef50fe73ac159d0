// Package parsertest builds small single-font PDF files for tests.
//
// Text is set in a fixed-width font at 10pt, so every glyph advances 6
// units. Row lays cells out on 60-unit columns starting at x=10.
package parsertest

import (
	"bytes"
	"fmt"
	"strings"
)

const (
	FontSize    = 10
	GlyphWidth  = 6
	ColumnWidth = 60
)

// Page accumulates the text of one page.
type Page struct {
	ops strings.Builder
}

// NewPage starts an empty page.
func NewPage() *Page { return &Page{} }

// Text places s with its first glyph at (x, y).
func (p *Page) Text(x, y float64, s string) *Page {
	fmt.Fprintf(&p.ops, "BT /F1 %d Tf %g %g Td (%s) Tj ET\n", FontSize, x, y, escape(s))
	return p
}

// Moved sets a then b inside one text object, b moved dx from the start of
// a with a Td operator.
func (p *Page) Moved(x, y, dx float64, a, b string) *Page {
	fmt.Fprintf(&p.ops, "BT /F1 %d Tf %g %g Td (%s) Tj %g 0 Td (%s) Tj ET\n",
		FontSize, x, y, escape(a), dx, escape(b))
	return p
}

// Row places cells on the column grid; an empty cell leaves its column blank.
func (p *Page) Row(y float64, cells ...string) *Page {
	for i, c := range cells {
		if c != "" {
			p.Text(10+float64(ColumnWidth*i), y, c)
		}
	}
	return p
}

// PDF renders the pages into a complete PDF file.
func PDF(pages ...*Page) []byte {
	var objects []string
	add := func(body string) int {
		objects = append(objects, body)
		return len(objects)
	}

	widths := strings.TrimSpace(strings.Repeat(fmt.Sprintf("%d ", GlyphWidth*100), 126-32+1))
	catalog := add("<< /Type /Catalog /Pages 2 0 R >>")
	pagesObj := add("") // filled once the kids are known
	font := add(fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /Courier /Encoding /WinAnsiEncoding /FirstChar 32 /LastChar 126 /Widths [%s] >>", widths))

	kids := make([]string, 0, len(pages))
	for _, pg := range pages {
		content := pg.ops.String()
		stream := add(fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(content), content))
		page := add(fmt.Sprintf("<< /Type /Page /Parent %d 0 R /MediaBox [0 0 900 842] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>",
			pagesObj, font, stream))
		kids = append(kids, fmt.Sprintf("%d 0 R", page))
	}
	objects[pagesObj-1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages))

	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, catalog, xref)
	return b.Bytes()
}

func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`).Replace(s)
}
