package writer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/visitor-arrivals/internal/domain/arrivals"
	"github.com/FACorreiaa/visitor-arrivals/pkg/metrics"
	"github.com/FACorreiaa/visitor-arrivals/pkg/storage"
)

const defaultConcurrency = 4

// ParquetRow is the on-disk record. Year, Month and Type are encoded in the
// partition path.
type ParquetRow struct {
	Country  string `parquet:"Country"`
	Arrivals int32  `parquet:"Arrivals"`
}

// ParquetWriter writes one Parquet file per partition under a Hive-style
// layout: <output>/Year=Y/Month=M/Type=T/part-<run>.parquet.
type ParquetWriter struct {
	store       storage.Storage
	output      storage.Location
	concurrency int
	tracer      trace.Tracer
	logger      *slog.Logger
}

// NewParquetWriter creates a writer rooted at output.
func NewParquetWriter(store storage.Storage, output storage.Location, logger *slog.Logger) *ParquetWriter {
	return &ParquetWriter{
		store:       store,
		output:      output,
		concurrency: defaultConcurrency,
		tracer:      otel.Tracer("github.com/FACorreiaa/visitor-arrivals/writer"),
		logger:      logger,
	}
}

// WithConcurrency bounds the number of partitions written at once.
func (w *ParquetWriter) WithConcurrency(n int) *ParquetWriter {
	if n > 0 {
		w.concurrency = n
	}
	return w
}

// YearPrefix returns the key prefix holding every partition of year.
func (w *ParquetWriter) YearPrefix(year int) string {
	return storage.JoinKey(w.output.Key, fmt.Sprintf("Year=%d", year)) + "/"
}

// Write clears the year's partitions and writes the new ones concurrently.
func (w *ParquetWriter) Write(ctx context.Context, year int, records []arrivals.Record) error {
	ctx, span := w.tracer.Start(ctx, "writer.Parquet", trace.WithAttributes(
		attribute.Int("year", year),
		attribute.Int("records", len(records)),
	))
	defer span.End()

	if err := w.clearYear(ctx, year); err != nil {
		return err
	}

	runID := uuid.NewString()
	partitions := arrivals.GroupByPartition(records)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for key, rows := range partitions {
		g.Go(func() error {
			return w.writePartition(gctx, runID, key, rows)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	metrics.RecordsWritten.WithLabelValues(SinkParquet).Add(float64(len(records)))
	w.logger.Info("parquet dataset written",
		slog.String("output", w.output.String()),
		slog.Int("year", year),
		slog.Int("partitions", len(partitions)),
		slog.Int("records", len(records)),
	)
	return nil
}

func (w *ParquetWriter) clearYear(ctx context.Context, year int) error {
	prefix := w.YearPrefix(year)
	existing, err := w.store.List(ctx, w.output.Bucket, prefix)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	for _, obj := range existing {
		if err := w.store.Delete(ctx, w.output.Bucket, obj.Key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", obj.Key, err)
		}
	}
	if len(existing) > 0 {
		w.logger.Debug("cleared previous partitions", slog.Int("year", year), slog.Int("objects", len(existing)))
	}
	return nil
}

func (w *ParquetWriter) writePartition(ctx context.Context, runID string, key arrivals.PartitionKey, records []arrivals.Record) error {
	body, err := EncodeParquet(records)
	if err != nil {
		return fmt.Errorf("partition %s: %w", key.Path(), err)
	}

	objectKey := storage.JoinKey(w.output.Key, key.Path()+"/part-"+runID+".parquet")
	if err := w.store.Put(ctx, w.output.Bucket, objectKey, "application/vnd.apache.parquet", bytes.NewReader(body), int64(len(body))); err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectKey, err)
	}
	return nil
}

// EncodeParquet serializes records as a Snappy-compressed Parquet file.
func EncodeParquet(records []arrivals.Record) ([]byte, error) {
	rows := make([]ParquetRow, len(records))
	for i, r := range records {
		rows[i] = ParquetRow{Country: r.Country, Arrivals: int32(r.Arrivals)}
	}

	var buf bytes.Buffer
	pw := parquet.NewGenericWriter[ParquetRow](&buf, parquet.Compression(&parquet.Snappy))
	if _, err := pw.Write(rows); err != nil {
		return nil, fmt.Errorf("failed to encode parquet: %w", err)
	}
	if err := pw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet: %w", err)
	}
	return buf.Bytes(), nil
}
