// Package normalizer cleans the text of extracted report rows.
// Every function here is idempotent: cleaning a cleaned value is a no-op.
package normalizer

import (
	"strings"

	"github.com/FACorreiaa/visitor-arrivals/internal/domain/arrivals"
)

const nbsp = "\u00a0"

// CleanNumber removes comma thousands-separators and surrounding whitespace.
// It does not parse the value.
func CleanNumber(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
}

// CleanShare cleans a percentage cell and drops the "%" sign.
func CleanShare(s string) string {
	return strings.ReplaceAll(CleanNumber(s), "%", "")
}

// NormalizeCountry is the form used for summary-row matching: uppercased,
// non-breaking spaces turned into spaces, asterisks removed, trimmed.
func NormalizeCountry(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, nbsp, " ")
	s = strings.ReplaceAll(s, "*", "")
	return strings.TrimSpace(s)
}

// Cell returns the i-th cell of a row or "" when the row is too short.
func Cell(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return cells[i]
}

// Normalize cleans every textual field of a row.
func Normalize(row arrivals.RawTableRow) arrivals.RawTableRow {
	row.Rank = strings.TrimSpace(row.Rank)
	row.Country = strings.TrimSpace(row.Country)
	for i, v := range row.MonthlyValues {
		row.MonthlyValues[i] = CleanNumber(v)
	}
	row.Total = CleanNumber(row.Total)
	row.SharePercent = CleanShare(row.SharePercent)
	return row
}

// FromCells builds a cleaned row from the 14 raw table cells of a page.
// Missing cells become empty strings.
func FromCells(cells []string, rankingType arrivals.RankingType) arrivals.RawTableRow {
	row := arrivals.RawTableRow{
		Rank:         Cell(cells, 0),
		Country:      Cell(cells, 1),
		Total:        Cell(cells, 12),
		SharePercent: Cell(cells, 13),
		RankingType:  rankingType,
	}
	for i := range row.MonthlyValues {
		row.MonthlyValues[i] = Cell(cells, 2+i)
	}
	return Normalize(row)
}
