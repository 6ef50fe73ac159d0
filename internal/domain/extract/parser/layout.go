package parser

import (
	"cmp"
	"slices"
	"strings"

	"github.com/tsawler/tabula/layout"
	"github.com/tsawler/tabula/text"
)

// Glyph is a positioned run of text on a page. Y grows upwards, as in PDF
// user space.
type Glyph struct {
	X, Y     float64
	W        float64
	FontSize float64
	S        string
}

// LayoutConfig tunes the text-alignment table strategy.
type LayoutConfig struct {
	WordGapRatio    float64 // gap (in font sizes) that inserts a space
	CellGapRatio    float64 // gap (in font sizes) that starts a new cell
	MinTableColumns int     // lines with fewer cells end the current table
}

// DefaultLayout returns settings that fit the statistical reports' tables.
func DefaultLayout() LayoutConfig {
	return LayoutConfig{
		WordGapRatio:    0.15,
		CellGapRatio:    0.9,
		MinTableColumns: 3,
	}
}

// Run is the text of one cell candidate with its horizontal extent.
type Run struct {
	X0, X1 float64
	Text   string
}

func (r Run) center() float64 { return (r.X0 + r.X1) / 2 }

// Lines groups glyphs into text lines with tabula's line detector. Lines are
// returned top of the page first, each ordered left to right.
func Lines(glyphs []Glyph) [][]Glyph {
	if len(glyphs) == 0 {
		return nil
	}

	fragments := make([]text.TextFragment, 0, len(glyphs))
	var width, height float64
	for _, g := range glyphs {
		fragments = append(fragments, text.TextFragment{
			X:        g.X,
			Y:        g.Y,
			Width:    g.W,
			Height:   g.FontSize,
			FontSize: g.FontSize,
			Text:     g.S,
		})
		width = max(width, g.X+g.W)
		height = max(height, g.Y+g.FontSize)
	}

	detected := layout.NewLineDetector().Detect(fragments, width, height)

	lines := make([][]Glyph, 0, len(detected.Lines))
	for _, l := range detected.Lines {
		if len(l.Fragments) == 0 {
			continue
		}
		line := make([]Glyph, 0, len(l.Fragments))
		for _, f := range l.Fragments {
			line = append(line, Glyph{X: f.X, Y: f.Y, W: f.Width, FontSize: f.FontSize, S: f.Text})
		}
		slices.SortStableFunc(line, func(a, b Glyph) int { return cmp.Compare(a.X, b.X) })
		lines = append(lines, line)
	}
	slices.SortStableFunc(lines, func(a, b []Glyph) int { return cmp.Compare(baseline(b), baseline(a)) })
	return lines
}

func baseline(line []Glyph) float64 {
	y := line[0].Y
	for _, g := range line[1:] {
		y = max(y, g.Y)
	}
	return y
}

// SplitRuns turns one line into runs, splitting at gaps wider than
// CellGapRatio font sizes.
func SplitRuns(line []Glyph, cfg LayoutConfig) []Run {
	var runs []Run
	var cell strings.Builder
	var prev *Glyph
	var start float64
	pendingSpace := false

	flush := func() {
		runs = append(runs, Run{X0: start, X1: prev.X + prev.W, Text: strings.TrimSpace(cell.String())})
		cell.Reset()
	}

	for i := range line {
		g := &line[i]
		if strings.TrimSpace(g.S) == "" {
			pendingSpace = prev != nil
			continue
		}
		if prev == nil {
			start = g.X
		} else {
			size := max(g.FontSize, prev.FontSize, 1)
			gap := g.X - (prev.X + prev.W)
			switch {
			case gap > cfg.CellGapRatio*size:
				flush()
				start = g.X
			case pendingSpace || gap > cfg.WordGapRatio*size:
				cell.WriteByte(' ')
			}
		}
		cell.WriteString(g.S)
		prev = g
		pendingSpace = false
	}
	if prev != nil {
		flush()
	}
	return runs
}

// SplitCells returns the texts of SplitRuns.
func SplitCells(line []Glyph, cfg LayoutConfig) []string {
	runs := SplitRuns(line, cfg)
	cells := make([]string, len(runs))
	for i, r := range runs {
		cells[i] = r.Text
	}
	return cells
}

// Columns picks the column layout of a table: the runs of the first line
// with the most common run count, larger counts winning ties.
func Columns(rows [][]Run) []Run {
	counts := make(map[int]int)
	for _, r := range rows {
		counts[len(r)]++
	}
	best := 0
	for n, c := range counts {
		if c > counts[best] || c == counts[best] && n > best {
			best = n
		}
	}
	for _, r := range rows {
		if len(r) == best {
			return r
		}
	}
	return nil
}

// AssignColumns places each run in the column slot its center falls in.
// Slot boundaries are the midpoints of the gaps between columns. Empty
// slots yield "" and runs sharing a slot are joined with a space.
func AssignColumns(runs, columns []Run) []string {
	cells := make([]string, len(columns))
	if len(columns) == 0 {
		return cells
	}
	for _, r := range runs {
		slot := len(columns) - 1
		for i := range columns[:len(columns)-1] {
			if r.center() < (columns[i].X1+columns[i+1].X0)/2 {
				slot = i
				break
			}
		}
		if cells[slot] != "" {
			cells[slot] += " "
		}
		cells[slot] += r.Text
	}
	return cells
}

// DetectTables finds runs of consecutive lines that split into at least
// MinTableColumns cells. Every row of a table is laid out on the table's
// column slots, so a blank cell keeps its position as "".
func DetectTables(glyphs []Glyph, cfg LayoutConfig) [][][]string {
	var tables [][][]string
	var current [][]Run

	emit := func() {
		if len(current) == 0 {
			return
		}
		columns := Columns(current)
		table := make([][]string, 0, len(current))
		for _, runs := range current {
			table = append(table, AssignColumns(runs, columns))
		}
		tables = append(tables, table)
		current = nil
	}

	for _, line := range Lines(glyphs) {
		runs := SplitRuns(line, cfg)
		if len(runs) >= cfg.MinTableColumns {
			current = append(current, runs)
			continue
		}
		emit()
	}
	emit()
	return tables
}

// PlainText joins the lines of a page, cells separated by single spaces.
func PlainText(glyphs []Glyph, cfg LayoutConfig) string {
	var b strings.Builder
	for _, line := range Lines(glyphs) {
		b.WriteString(strings.Join(SplitCells(line, cfg), " "))
		b.WriteByte('\n')
	}
	return b.String()
}
