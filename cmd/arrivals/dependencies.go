package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/FACorreiaa/visitor-arrivals/internal/domain/dispatch"
	"github.com/FACorreiaa/visitor-arrivals/internal/domain/events"
	extract "github.com/FACorreiaa/visitor-arrivals/internal/domain/extract/service"
	"github.com/FACorreiaa/visitor-arrivals/internal/domain/extract/parser"
	transform "github.com/FACorreiaa/visitor-arrivals/internal/domain/transform/service"
	"github.com/FACorreiaa/visitor-arrivals/internal/domain/transform/writer"
	"github.com/FACorreiaa/visitor-arrivals/pkg/broker"
	"github.com/FACorreiaa/visitor-arrivals/pkg/config"
	"github.com/FACorreiaa/visitor-arrivals/pkg/db"
	"github.com/FACorreiaa/visitor-arrivals/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	Logger *slog.Logger

	// Infrastructure
	Storage storage.Storage
	DB      *db.DB
	Broker  *broker.Broker

	// Services
	ExtractService   *extract.Service
	TransformService *transform.Service
	Dispatcher       *dispatch.Dispatcher
	Worker           *dispatch.Worker
	Router           *events.Router
}

type needs struct {
	broker   bool
	database bool
}

// InitDependencies initializes the dependencies a command needs
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger, n needs) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initStorage(ctx); err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}

	if n.database || cfg.Pipeline.Sink == writer.SinkPostgres {
		if err := deps.initDatabase(); err != nil {
			deps.Close()
			return nil, fmt.Errorf("failed to init database: %w", err)
		}
	}

	if n.broker {
		if err := deps.initBroker(ctx); err != nil {
			deps.Close()
			return nil, fmt.Errorf("failed to init broker: %w", err)
		}
	}

	if err := deps.initServices(); err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	logger.Debug("dependencies initialized")
	return deps, nil
}

func (d *Dependencies) initStorage(ctx context.Context) error {
	sc := d.Config.Storage
	store, err := storage.New(&storage.Config{
		Type:              storage.StorageType(sc.Type),
		LocalPath:         sc.LocalPath,
		S3Endpoint:        sc.S3Endpoint,
		S3Region:          sc.S3Region,
		S3AccessKeyID:     sc.S3AccessKeyID,
		S3SecretAccessKey: sc.S3SecretAccessKey,
		S3UseSSL:          sc.S3UseSSL,
	})
	if err != nil {
		return err
	}

	if s3, ok := store.(*storage.S3Storage); ok && d.Config.Pipeline.DestBucket != "" {
		if err := s3.EnsureBucket(ctx, d.Config.Pipeline.DestBucket, sc.S3Region); err != nil {
			return err
		}
	}

	d.Storage = store
	d.Logger.Info("storage ready", slog.String("type", sc.Type))
	return nil
}

// initDatabase initializes the database connection
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        10,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database
	return nil
}

func (d *Dependencies) initBroker(ctx context.Context) error {
	b, err := broker.Dial(ctx, broker.Config{
		URL:          d.Config.Broker.URL,
		Prefetch:     d.Config.Broker.Prefetch,
		DialAttempts: d.Config.Broker.DialAttempts,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.Broker = b
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	pc := d.Config.Pipeline

	d.ExtractService = extract.NewService(d.Storage, extract.Config{
		DestBucket:      pc.DestBucket,
		DestPrefix:      pc.DestPrefix,
		ProcessedPrefix: pc.LandingProcessedPrefix,
		Layout:          parser.DefaultLayout(),
	}, d.Logger)

	newWriter, err := d.writerFactory(pc.Sink)
	if err != nil {
		return err
	}
	d.TransformService = transform.NewService(d.Storage, newWriter, d.Logger)
	d.Worker = dispatch.NewWorker(d.TransformService, d.TransformJob(), d.Logger)

	if d.Broker != nil {
		limiter := rate.NewLimiter(rate.Limit(pc.DispatchRate), pc.DispatchBurst)
		d.Dispatcher = dispatch.NewDispatcher(
			dispatch.NewQueueRunner(d.Broker, d.Config.Broker.JobsQueue),
			pc.TransformJobName,
			limiter,
			d.Logger,
		)
	}

	d.Router = events.NewRouter(d.Logger).
		Handle("extract", pc.LandingPrefix, ".pdf", d.extractObject)
	if d.Dispatcher != nil {
		d.Router.Handle("dispatch", pc.DestPrefix, ".csv", d.dispatchObject)
	}
	return nil
}

func (d *Dependencies) writerFactory(sink string) (transform.WriterFactory, error) {
	switch sink {
	case writer.SinkParquet:
		return transform.ParquetWriters(d.Storage, d.Config.Pipeline.WriteConcurrency, d.Logger), nil
	case writer.SinkPostgres:
		if d.DB == nil {
			return nil, fmt.Errorf("postgres sink requires a database")
		}
		return transform.FixedWriter(writer.NewPostgresWriter(d.DB.Pool, d.Logger)), nil
	default:
		return nil, fmt.Errorf("unknown dataset sink %q", sink)
	}
}

// TransformJob returns the configured transform locations.
func (d *Dependencies) TransformJob() transform.Job {
	return transform.Job{
		SrcPath:         d.Config.Pipeline.SrcPath,
		OutputPath:      d.Config.Pipeline.OutputPath,
		ProcessedPrefix: d.Config.Pipeline.ProcessedPrefix,
	}
}

func (d *Dependencies) extractObject(ctx context.Context, obj events.ObjectCreated) error {
	_, err := d.ExtractService.Process(ctx, extract.ObjectRef{Bucket: obj.Bucket, Key: obj.Key})
	return err
}

func (d *Dependencies) dispatchObject(ctx context.Context, obj events.ObjectCreated) error {
	_, err := d.Dispatcher.Dispatch(ctx, obj.Bucket, obj.Key)
	return err
}

// Close releases connections
func (d *Dependencies) Close() {
	if d.Broker != nil {
		if err := d.Broker.Close(); err != nil {
			d.Logger.Warn("failed to close broker", slog.Any("error", err))
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
}
