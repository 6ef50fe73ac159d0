// Package service extracts ranking tables from arrival report PDFs held in
// object storage and publishes them as CSV.
package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/visitor-arrivals/internal/domain/extract/parser"
	"github.com/FACorreiaa/visitor-arrivals/pkg/metrics"
	"github.com/FACorreiaa/visitor-arrivals/pkg/storage"
)

// ObjectRef identifies a stored object.
type ObjectRef struct {
	Bucket string
	Key    string
}

// Config controls where extraction output goes. An empty DestBucket writes
// the CSV next to the source PDF.
type Config struct {
	DestBucket      string
	DestPrefix      string
	ProcessedPrefix string
	Layout          parser.LayoutConfig
}

// Result describes one completed extraction.
type Result struct {
	Rows        int
	CSVBucket   string
	CSVKey      string
	ArchivedKey string
}

// OpenFunc parses raw document bytes.
type OpenFunc func(data []byte) (parser.Document, error)

// Service runs PDF to CSV extraction against object storage.
type Service struct {
	store     storage.Storage
	extractor *Extractor
	open      OpenFunc
	cfg       Config
	tracer    trace.Tracer
	logger    *slog.Logger
}

// NewService creates an extraction service backed by the PDF reader.
func NewService(store storage.Storage, cfg Config, logger *slog.Logger) *Service {
	layout := cfg.Layout
	return &Service{
		store:     store,
		extractor: NewExtractor(logger),
		open: func(data []byte) (parser.Document, error) {
			return parser.Open(data, layout)
		},
		cfg:    cfg,
		tracer: otel.Tracer("github.com/FACorreiaa/visitor-arrivals/extract"),
		logger: logger,
	}
}

// WithOpener replaces the document reader.
func (s *Service) WithOpener(open OpenFunc) *Service {
	s.open = open
	return s
}

// CSVKey returns the staging key for a source PDF key.
func CSVKey(destPrefix, srcKey string) string {
	base := path.Base(srcKey)
	return destPrefix + strings.TrimSuffix(base, path.Ext(base)) + ".csv"
}

// Process extracts one PDF, uploads its CSV and archives the PDF. The PDF is
// moved only after the CSV upload succeeded.
func (s *Service) Process(ctx context.Context, ref ObjectRef) (result *Result, err error) {
	ctx, span := s.tracer.Start(ctx, "extract.Process", trace.WithAttributes(
		attribute.String("bucket", ref.Bucket),
		attribute.String("key", ref.Key),
	))
	timer := prometheus.NewTimer(metrics.StageDuration.WithLabelValues(metrics.StageExtract))
	defer func() {
		timer.ObserveDuration()
		metrics.ObserveJob(metrics.StageExtract, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	s.logger.Info("extracting report", slog.String("bucket", ref.Bucket), slog.String("key", ref.Key))

	data, _, err := storage.ReadAll(ctx, s.store, ref.Bucket, ref.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s/%s: %w", ref.Bucket, ref.Key, err)
	}

	doc, err := s.open(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", ref.Key, err)
	}

	body, rows, err := MarshalCSV(s.extractor.Rows(doc))
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		s.logger.Warn("no table rows extracted", slog.String("key", ref.Key))
	}

	destBucket := s.cfg.DestBucket
	if destBucket == "" {
		destBucket = ref.Bucket
	}
	result = &Result{
		Rows:      rows,
		CSVBucket: destBucket,
		CSVKey:    CSVKey(s.cfg.DestPrefix, ref.Key),
	}
	if err := s.store.Put(ctx, result.CSVBucket, result.CSVKey, "text/csv", bytes.NewReader(body), int64(len(body))); err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", result.CSVKey, err)
	}

	result.ArchivedKey = storage.ArchiveKey(s.cfg.ProcessedPrefix, ref.Key)
	if err := s.store.Move(ctx, ref.Bucket, ref.Key, result.ArchivedKey); err != nil {
		return nil, fmt.Errorf("failed to archive %s: %w", ref.Key, err)
	}

	span.SetAttributes(attribute.Int("rows", rows))
	s.logger.Info("report extracted",
		slog.String("csv", result.CSVBucket+"/"+result.CSVKey),
		slog.String("archived", result.ArchivedKey),
		slog.Int("rows", rows),
	)
	return result, nil
}
