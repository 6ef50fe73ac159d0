// Package service runs the batch transform: pick the newest staged CSV,
// reshape it into long records, write the partitioned dataset and archive
// the source.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/visitor-arrivals/internal/domain/arrivals"
	"github.com/FACorreiaa/visitor-arrivals/internal/domain/transform/engine"
	"github.com/FACorreiaa/visitor-arrivals/internal/domain/transform/reader"
	"github.com/FACorreiaa/visitor-arrivals/internal/domain/transform/writer"
	"github.com/FACorreiaa/visitor-arrivals/pkg/metrics"
	"github.com/FACorreiaa/visitor-arrivals/pkg/storage"
)

// Job describes one transform run.
type Job struct {
	// SrcPath is a location pattern such as s3://bucket/staging/*.csv.
	SrcPath string
	// OutputPath is the dataset root.
	OutputPath string
	// ProcessedPrefix is where the consumed source is moved.
	ProcessedPrefix string
}

// Validate checks that every location is set.
func (j Job) Validate() error {
	var errs []error
	if j.SrcPath == "" {
		errs = append(errs, errors.New("source path is required"))
	}
	if j.OutputPath == "" {
		errs = append(errs, errors.New("output path is required"))
	}
	if j.ProcessedPrefix == "" {
		errs = append(errs, errors.New("processed prefix is required"))
	}
	return errors.Join(errs...)
}

// Result summarizes a completed run.
type Result struct {
	Source      storage.ObjectInfo
	Year        int
	InputRows   int
	Records     int
	Partitions  int
	ArchivedKey string
}

// WriterFactory builds the dataset writer for an output location.
type WriterFactory func(output storage.Location) (writer.Writer, error)

// Service runs transform jobs against object storage.
type Service struct {
	store     storage.Storage
	newWriter WriterFactory
	tracer    trace.Tracer
	logger    *slog.Logger
}

// NewService creates a transform service.
func NewService(store storage.Storage, newWriter WriterFactory, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		newWriter: newWriter,
		tracer:    otel.Tracer("github.com/FACorreiaa/visitor-arrivals/transform"),
		logger:    logger,
	}
}

// ParquetWriters returns a factory writing Parquet datasets to store.
func ParquetWriters(store storage.Storage, concurrency int, logger *slog.Logger) WriterFactory {
	return func(output storage.Location) (writer.Writer, error) {
		return writer.NewParquetWriter(store, output, logger).WithConcurrency(concurrency), nil
	}
}

// FixedWriter returns a factory that ignores the output location.
func FixedWriter(w writer.Writer) WriterFactory {
	return func(storage.Location) (writer.Writer, error) {
		return w, nil
	}
}

// Run executes one transform. The source object is archived only after the
// dataset was written; any earlier failure or cancellation leaves it in
// place.
func (s *Service) Run(ctx context.Context, job Job) (result *Result, err error) {
	ctx, span := s.tracer.Start(ctx, "transform.Run", trace.WithAttributes(
		attribute.String("src_path", job.SrcPath),
		attribute.String("output_path", job.OutputPath),
	))
	timer := prometheus.NewTimer(metrics.StageDuration.WithLabelValues(metrics.StageTransform))
	defer func() {
		timer.ObserveDuration()
		metrics.ObserveJob(metrics.StageTransform, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := job.Validate(); err != nil {
		return nil, err
	}
	src, err := storage.ParseLocation(job.SrcPath)
	if err != nil {
		return nil, err
	}
	output, err := storage.ParseLocation(job.OutputPath)
	if err != nil {
		return nil, err
	}

	source, err := s.resolveSource(ctx, src)
	if err != nil {
		return nil, err
	}
	s.logger.Info("transforming latest source",
		slog.String("bucket", source.Bucket),
		slog.String("key", source.Key),
	)

	year, err := arrivals.YearFromFilename(source.Key)
	if err != nil {
		return nil, err
	}

	data, _, err := storage.ReadAll(ctx, s.store, source.Bucket, source.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", source.Key, err)
	}
	frame, err := reader.Read(source.Key, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", source.Key, err)
	}

	reshaped, err := engine.Transform(frame, year)
	if err != nil {
		return nil, fmt.Errorf("failed to transform %s: %w", source.Key, err)
	}

	w, err := s.newWriter(output)
	if err != nil {
		return nil, fmt.Errorf("failed to create writer: %w", err)
	}
	if err := w.Write(ctx, year, reshaped.Records); err != nil {
		return nil, fmt.Errorf("failed to write dataset: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	archived := storage.ArchiveKey(job.ProcessedPrefix, source.Key)
	if err := s.store.Move(ctx, source.Bucket, source.Key, archived); err != nil {
		return nil, fmt.Errorf("failed to archive %s: %w", source.Key, err)
	}

	result = &Result{
		Source:      source,
		Year:        year,
		InputRows:   reshaped.InputRows,
		Records:     len(reshaped.Records),
		Partitions:  len(reshaped.Partitions()),
		ArchivedKey: archived,
	}
	span.SetAttributes(attribute.Int("year", year), attribute.Int("records", result.Records))
	s.logger.Info("transform completed",
		slog.Int("year", year),
		slog.Int("input_rows", result.InputRows),
		slog.Int("untyped_rows", reshaped.UntypedRows),
		slog.Int("dropped_records", reshaped.DroppedRecords),
		slog.Int("records", result.Records),
		slog.Int("partitions", result.Partitions),
		slog.String("archived", archived),
	)
	return result, nil
}

func (s *Service) resolveSource(ctx context.Context, src storage.Location) (storage.ObjectInfo, error) {
	objects, err := s.store.List(ctx, src.Bucket, src.Prefix())
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("failed to list %s: %w", src, err)
	}
	latest, err := storage.ResolveLatest(objects, src.Key)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	latest.Bucket = src.Bucket
	return latest, nil
}
