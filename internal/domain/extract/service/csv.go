package service

import (
	"fmt"
	"iter"

	"github.com/gocarina/gocsv"

	"github.com/FACorreiaa/visitor-arrivals/internal/domain/arrivals"
)

// csvRow is one line of the extraction CSV. Field order is the column order.
type csvRow struct {
	Rank        string `csv:"Rank"`
	Country     string `csv:"Country"`
	January     string `csv:"January"`
	February    string `csv:"February"`
	March       string `csv:"March"`
	April       string `csv:"April"`
	May         string `csv:"May"`
	June        string `csv:"June"`
	July        string `csv:"July"`
	August      string `csv:"August"`
	September   string `csv:"September"`
	October     string `csv:"October"`
	Total       string `csv:"Jan-Oct Total"`
	Share       string `csv:"% Share"`
	RankingType string `csv:"RankingType"`
}

func newCSVRow(r arrivals.RawTableRow) csvRow {
	m := r.MonthlyValues
	return csvRow{
		Rank:        r.Rank,
		Country:     r.Country,
		January:     m[0],
		February:    m[1],
		March:       m[2],
		April:       m[3],
		May:         m[4],
		June:        m[5],
		July:        m[6],
		August:      m[7],
		September:   m[8],
		October:     m[9],
		Total:       r.Total,
		Share:       r.SharePercent,
		RankingType: r.RankingType.String(),
	}
}

// MarshalCSV renders rows with a header line. An empty sequence yields the
// header alone.
func MarshalCSV(rows iter.Seq[arrivals.RawTableRow]) ([]byte, int, error) {
	out := make([]csvRow, 0, 64)
	for r := range rows {
		out = append(out, newCSVRow(r))
	}

	body, err := gocsv.MarshalBytes(&out)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal CSV: %w", err)
	}
	return body, len(out), nil
}
