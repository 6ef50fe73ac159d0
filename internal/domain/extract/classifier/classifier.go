// Package classifier decides which extracted table rows carry country data.
// The predicates are pure and operate on plain strings so they can be tested
// without PDF fixtures.
package classifier

import (
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/FACorreiaa/visitor-arrivals/internal/domain/arrivals"
	"github.com/FACorreiaa/visitor-arrivals/internal/domain/extract/normalizer"
)

// MinCells is the number of cells a data row must have.
const MinCells = 14

// Verdict is the outcome of classifying one table row.
type Verdict int

const (
	Keep Verdict = iota
	SkipShort
	SkipHeader
	SkipEmptyCountry
	SkipSummary
)

// String returns a short label, used as a metric label.
func (v Verdict) String() string {
	switch v {
	case Keep:
		return "keep"
	case SkipShort:
		return "short"
	case SkipHeader:
		return "header"
	case SkipEmptyCountry:
		return "empty_country"
	case SkipSummary:
		return "summary"
	default:
		return "unknown"
	}
}

// Classifier matches rows against the summary keywords in a single pass
// using an Aho-Corasick automaton. It is safe for concurrent use.
type Classifier struct {
	matcher *ahocorasick.Matcher
}

// New builds a classifier over arrivals.SummaryKeywords.
func New() *Classifier {
	return &Classifier{matcher: ahocorasick.NewStringMatcher(arrivals.SummaryKeywords())}
}

// Classify reports whether a raw table row should be kept.
func (c *Classifier) Classify(cells []string) Verdict {
	if len(cells) < MinCells {
		return SkipShort
	}
	if IsHeaderRow(cells) {
		return SkipHeader
	}
	country := strings.TrimSpace(cells[1])
	if country == "" {
		return SkipEmptyCountry
	}
	if c.IsSummaryRow(country) {
		return SkipSummary
	}
	return Keep
}

// IsSummaryRow reports whether the normalized country names a total row.
func (c *Classifier) IsSummaryRow(country string) bool {
	norm := normalizer.NormalizeCountry(country)
	if norm == "" {
		return false
	}
	return len(c.matcher.MatchThreadSafe([]byte(norm))) > 0
}

// IsHeaderRow reports whether the row repeats the table header.
func IsHeaderRow(cells []string) bool {
	return strings.Contains(strings.ToUpper(normalizer.Cell(cells, 0)), "RANK") ||
		strings.Contains(strings.ToUpper(normalizer.Cell(cells, 1)), "COUNTRY")
}

// DetectRankingType reads the table category from the page text.
func DetectRankingType(pageText string) arrivals.RankingType {
	text := strings.ToUpper(pageText)
	switch {
	case strings.Contains(text, "BY NATIONALITY"):
		return arrivals.RankingByNationality
	case strings.Contains(text, "BY COUNTRY OF RESIDENCE"):
		return arrivals.RankingByCountryOfResidence
	default:
		return arrivals.RankingUnknown
	}
}
