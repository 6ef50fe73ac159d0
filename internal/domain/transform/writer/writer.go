// Package writer persists long-format arrival records as a dataset
// partitioned by year, month and category.
package writer

import (
	"context"

	"github.com/FACorreiaa/visitor-arrivals/internal/domain/arrivals"
)

// Writer replaces every partition of year with records.
type Writer interface {
	Write(ctx context.Context, year int, records []arrivals.Record) error
}

// Sink names.
const (
	SinkParquet  = "parquet"
	SinkPostgres = "postgres"
)
