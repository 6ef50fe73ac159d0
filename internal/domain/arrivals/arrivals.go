// Package arrivals holds the data model shared by the extraction and
// transform stages of the visitor arrivals pipeline.
package arrivals

import (
	"fmt"
	"strings"
)

// MonthCount is the number of month columns in a Jan-Oct report.
const MonthCount = 10

// RankingType is the table category a report page belongs to.
type RankingType int

const (
	RankingUnknown RankingType = iota
	RankingByNationality
	RankingByCountryOfResidence
)

// String returns the label written to the RankingType column.
func (t RankingType) String() string {
	switch t {
	case RankingByNationality:
		return "Ranking by Nationality"
	case RankingByCountryOfResidence:
		return "Ranking by Country of Residence"
	default:
		return "Unknown"
	}
}

// RawTableRow is one qualifying table row pulled from a report page.
type RawTableRow struct {
	Rank          string
	Country       string
	MonthlyValues [MonthCount]string
	Total         string
	SharePercent  string
	RankingType   RankingType
}

// Record is one (country, month) observation of the long-format dataset.
type Record struct {
	Country  string
	Type     string
	Year     int
	Month    int
	Arrivals int
}

// Key returns the partition the record belongs to.
func (r Record) Key() PartitionKey {
	return PartitionKey{Year: r.Year, Month: r.Month, Type: r.Type}
}

// PartitionKey identifies one physical partition of the output dataset.
type PartitionKey struct {
	Year  int
	Month int
	Type  string
}

// Path renders the key as a Hive-style partition path. The Type value is
// escaped the way Hive and Spark escape partition values.
func (k PartitionKey) Path() string {
	return fmt.Sprintf("Year=%d/Month=%d/Type=%s", k.Year, k.Month, EscapePartitionValue(k.Type))
}

// EscapePartitionValue percent-encodes the characters Hive reserves in
// partition directory names, so a value never adds a path level.
func EscapePartitionValue(v string) string {
	if !strings.ContainsFunc(v, needsEscape) {
		return v
	}
	var b strings.Builder
	for _, r := range v {
		if needsEscape(r) {
			fmt.Fprintf(&b, "%%%02X", r)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func needsEscape(r rune) bool {
	if r < 0x20 || r == 0x7F {
		return true
	}
	return strings.ContainsRune("\"#%'*/:=?\\{[]^", r)
}

// GroupByPartition buckets records by their partition key.
func GroupByPartition(records []Record) map[PartitionKey][]Record {
	out := make(map[PartitionKey][]Record)
	for _, r := range records {
		k := r.Key()
		out[k] = append(out[k], r)
	}
	return out
}
