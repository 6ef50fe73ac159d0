package arrivals

// Column names of the intermediate CSV produced by extraction.
const (
	ColRank        = "Rank"
	ColCountry     = "Country"
	ColTotal       = "Jan-Oct Total"
	ColShare       = "% Share"
	ColRankingType = "RankingType"
	ColType        = "Type"
)

var monthNames = [MonthCount]string{
	"January", "February", "March", "April", "May",
	"June", "July", "August", "September", "October",
}

// MonthNames returns the month columns in calendar order.
func MonthNames() [MonthCount]string {
	return monthNames
}

// MonthNumber maps a month column name to its ordinal (1-10).
func MonthNumber(name string) (int, bool) {
	for i, m := range monthNames {
		if m == name {
			return i + 1, true
		}
	}
	return 0, false
}

// ExtractColumns returns the exact column order of the extraction output.
func ExtractColumns() []string {
	cols := make([]string, 0, 5+MonthCount)
	cols = append(cols, ColRank, ColCountry)
	cols = append(cols, monthNames[:]...)
	return append(cols, ColTotal, ColShare, ColRankingType)
}

var summaryKeywords = [...]string{"GRAND TOTAL", "OVERSEAS FILIPINOS", "FOREIGN TOURISTS"}

// SummaryKeywords returns the keywords that mark a total or subtotal row.
func SummaryKeywords() []string {
	return summaryKeywords[:]
}
