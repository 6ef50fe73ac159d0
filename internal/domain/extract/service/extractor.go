package service

import (
	"iter"
	"log/slog"

	"github.com/FACorreiaa/visitor-arrivals/internal/domain/arrivals"
	"github.com/FACorreiaa/visitor-arrivals/internal/domain/extract/classifier"
	"github.com/FACorreiaa/visitor-arrivals/internal/domain/extract/normalizer"
	"github.com/FACorreiaa/visitor-arrivals/internal/domain/extract/parser"
	"github.com/FACorreiaa/visitor-arrivals/pkg/metrics"
)

// Extractor turns report pages into normalized ranking rows.
type Extractor struct {
	classifier *classifier.Classifier
	logger     *slog.Logger
}

// NewExtractor creates an extractor. The summary-row matcher is built once
// and shared by every document.
func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{
		classifier: classifier.New(),
		logger:     logger,
	}
}

// Rows yields every qualifying row of doc, page by page in table order.
// Pages that cannot be read are skipped. The sequence is consumed lazily and
// can be replayed by calling Rows again on the same document.
func (e *Extractor) Rows(doc parser.Document) iter.Seq[arrivals.RawTableRow] {
	return func(yield func(arrivals.RawTableRow) bool) {
		for n := 1; n <= doc.NumPages(); n++ {
			page, err := doc.Page(n)
			if err != nil {
				e.skipPage(n, err)
				continue
			}

			text, err := page.Text()
			if err != nil {
				e.skipPage(n, err)
				continue
			}
			rankingType := classifier.DetectRankingType(text)

			tables, err := page.Tables()
			if err != nil {
				e.skipPage(n, err)
				continue
			}

			for _, table := range tables {
				for _, cells := range table {
					if verdict := e.classifier.Classify(cells); verdict != classifier.Keep {
						metrics.RowsSkipped.WithLabelValues(verdict.String()).Inc()
						continue
					}
					metrics.RowsExtracted.Inc()
					if !yield(normalizer.FromCells(cells, rankingType)) {
						return
					}
				}
			}
		}
	}
}

func (e *Extractor) skipPage(n int, err error) {
	metrics.PagesSkipped.Inc()
	e.logger.Debug("skipping unreadable page",
		slog.Int("page", n),
		slog.Any("error", err),
	)
}
