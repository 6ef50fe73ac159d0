package writer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/visitor-arrivals/internal/domain/arrivals"
	"github.com/FACorreiaa/visitor-arrivals/pkg/metrics"
)

// Table is the relational dataset table.
const Table = "visitor_arrivals"

var columns = []string{"year", "month", "type", "country", "arrivals"}

// TxBeginner starts transactions. *pgxpool.Pool satisfies it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresWriter stores records in the visitor_arrivals table.
type PostgresWriter struct {
	db     TxBeginner
	logger *slog.Logger
}

// NewPostgresWriter creates a relational writer.
func NewPostgresWriter(db TxBeginner, logger *slog.Logger) *PostgresWriter {
	return &PostgresWriter{db: db, logger: logger}
}

// Write replaces the year's rows in a single transaction.
func (w *PostgresWriter) Write(ctx context.Context, year int, records []arrivals.Record) error {
	tx, err := w.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM visitor_arrivals WHERE year = $1`, year)
	if err != nil {
		return fmt.Errorf("failed to clear year %d: %w", year, err)
	}

	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{r.Year, r.Month, r.Type, r.Country, r.Arrivals}
	}
	copied, err := tx.CopyFrom(ctx, pgx.Identifier{Table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	metrics.RecordsWritten.WithLabelValues(SinkPostgres).Add(float64(copied))
	w.logger.Info("postgres dataset written",
		slog.Int("year", year),
		slog.Int64("replaced", tag.RowsAffected()),
		slog.Int64("records", copied),
	)
	return nil
}
