// Package reader loads tabular transform input (CSV or XLSX) into a frame of
// nullable string cells.
package reader

// Cell is a nullable string value.
type Cell struct {
	Value string
	Valid bool
}

// Str returns a non-null cell.
func Str(s string) Cell {
	return Cell{Value: s, Valid: true}
}

// Null returns a null cell.
func Null() Cell {
	return Cell{}
}

// Frame is a table of named columns. Every row has len(Columns) cells.
type Frame struct {
	Columns []string
	Rows    [][]Cell
}

// Index returns the position of the named column, or -1.
func (f *Frame) Index(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of f.
func (f *Frame) Clone() *Frame {
	out := &Frame{
		Columns: append([]string(nil), f.Columns...),
		Rows:    make([][]Cell, len(f.Rows)),
	}
	for i, r := range f.Rows {
		out.Rows[i] = append([]Cell(nil), r...)
	}
	return out
}

// newFrame builds a frame from a header and raw records. Empty values become
// null, short records are padded with nulls and surplus values are dropped.
func newFrame(header []string, records [][]string) *Frame {
	f := &Frame{
		Columns: header,
		Rows:    make([][]Cell, 0, len(records)),
	}
	for _, rec := range records {
		if isBlank(rec) {
			continue
		}
		row := make([]Cell, len(header))
		for i := range row {
			if i < len(rec) && rec[i] != "" {
				row[i] = Str(rec[i])
			}
		}
		f.Rows = append(f.Rows, row)
	}
	return f
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if v != "" {
			return false
		}
	}
	return true
}
