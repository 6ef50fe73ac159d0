// Package engine reshapes the wide per-country ranking table into long
// (country, month) arrival records.
package engine

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/visitor-arrivals/internal/domain/arrivals"
	"github.com/FACorreiaa/visitor-arrivals/internal/domain/extract/normalizer"
	"github.com/FACorreiaa/visitor-arrivals/internal/domain/transform/reader"
)

var trailingWord = regexp.MustCompile(`(\w+)$`)

var (
	minInt32 = decimal.NewFromInt(math.MinInt32)
	maxInt32 = decimal.NewFromInt(math.MaxInt32)
)

// Result is the outcome of one reshape.
type Result struct {
	Records []arrivals.Record

	// InputRows counts frame rows; UntypedRows were dropped for a missing
	// category; DroppedRecords were pivoted but failed validation.
	InputRows      int
	UntypedRows    int
	DroppedRecords int
}

// Partitions groups the records by partition key.
func (r *Result) Partitions() map[arrivals.PartitionKey][]arrivals.Record {
	return arrivals.GroupByPartition(r.Records)
}

// Transform reshapes a frame of the extraction CSV into records for year.
// The frame is not modified.
func Transform(frame *reader.Frame, year int) (*Result, error) {
	f := frame.Clone()

	for i, c := range f.Columns {
		f.Columns[i] = strings.TrimSpace(c)
	}
	stripHyphens(f)
	dropColumns(f, arrivals.ColRank, arrivals.ColTotal, arrivals.ColShare)
	renameColumn(f, arrivals.ColRankingType, arrivals.ColType)

	countryIdx := f.Index(arrivals.ColCountry)
	typeIdx := f.Index(arrivals.ColType)
	if countryIdx < 0 {
		return nil, fmt.Errorf("%w: %s", arrivals.ErrMissingColumn, arrivals.ColCountry)
	}
	if typeIdx < 0 {
		return nil, fmt.Errorf("%w: %s", arrivals.ErrMissingColumn, arrivals.ColRankingType)
	}

	months := arrivals.MonthNames()
	var monthIdx [arrivals.MonthCount]int
	for i, name := range months {
		if monthIdx[i] = f.Index(name); monthIdx[i] < 0 {
			return nil, fmt.Errorf("%w: %s", arrivals.ErrMissingColumn, name)
		}
	}

	result := &Result{
		Records:   make([]arrivals.Record, 0, len(f.Rows)*arrivals.MonthCount),
		InputRows: len(f.Rows),
	}
	for _, row := range f.Rows {
		typ := row[typeIdx]
		if typ.Valid {
			typ = reader.Str(DeriveType(typ.Value))
		}
		if !typ.Valid || typ.Value == "" {
			result.UntypedRows++
			continue
		}

		country := row[countryIdx]
		for i, name := range months {
			month, ok := MonthOrdinal(name)
			count, valid := CastArrivals(row[monthIdx[i]])
			if !country.Valid || country.Value == "" || !ok || !valid || count < 0 {
				result.DroppedRecords++
				continue
			}
			result.Records = append(result.Records, arrivals.Record{
				Country:  country.Value,
				Type:     typ.Value,
				Year:     year,
				Month:    month,
				Arrivals: count,
			})
		}
	}
	return result, nil
}

// DeriveType reduces a ranking label to its trailing word, e.g.
// "Ranking by Nationality" becomes "Nationality". A label without a trailing
// word is returned trimmed.
func DeriveType(label string) string {
	label = strings.TrimSpace(label)
	if m := trailingWord.FindString(label); m != "" {
		return m
	}
	return label
}

// MonthOrdinal maps a (possibly padded) month name to 1..10.
func MonthOrdinal(name string) (int, bool) {
	return arrivals.MonthNumber(strings.TrimSpace(name))
}

// CastArrivals converts an arrivals cell to an integer. Thousands separators
// and surrounding whitespace are removed first, decimals are truncated toward
// zero, and values outside the 32-bit range or not numeric are invalid.
// Exponent forms are not numbers here.
func CastArrivals(c reader.Cell) (int, bool) {
	if !c.Valid {
		return 0, false
	}
	s := normalizer.CleanNumber(c.Value)
	if s == "" || strings.ContainsAny(s, "eE") {
		return 0, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	d = d.Truncate(0)
	if d.LessThan(minInt32) || d.GreaterThan(maxInt32) {
		return 0, false
	}
	return int(d.IntPart()), true
}

func stripHyphens(f *reader.Frame) {
	for _, row := range f.Rows {
		for i, c := range row {
			if c.Valid {
				row[i].Value = strings.ReplaceAll(c.Value, "-", "")
			}
		}
	}
}

func dropColumns(f *reader.Frame, names ...string) {
	for _, name := range names {
		idx := f.Index(name)
		if idx < 0 {
			continue
		}
		f.Columns = append(f.Columns[:idx], f.Columns[idx+1:]...)
		for r, row := range f.Rows {
			f.Rows[r] = append(row[:idx], row[idx+1:]...)
		}
	}
}

func renameColumn(f *reader.Frame, from, to string) {
	if idx := f.Index(from); idx >= 0 {
		f.Columns[idx] = to
	}
}
