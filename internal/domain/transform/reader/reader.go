package reader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"
)

// ErrEmptyInput is returned for input without a header row.
var ErrEmptyInput = errors.New("reader: input has no header row")

const bom = "\ufeff"

// Read loads a frame, choosing the format from the file name's extension.
func Read(name string, r io.Reader) (*Frame, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(r)
	default:
		return ReadCSV(r)
	}
}

// ReadCSV loads a frame from CSV with a header row.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := gocsv.LazyCSVReader(r)
	if std, ok := cr.(*csv.Reader); ok {
		std.FieldsPerRecord = -1
	}

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV: %w", err)
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, ErrEmptyInput
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], bom)
	}
	return newFrame(header, records[1:]), nil
}

// ReadXLSX loads a frame from the first sheet of a workbook.
func ReadXLSX(r io.Reader) (*Frame, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyInput
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyInput
	}
	return newFrame(rows[0], rows[1:]), nil
}
