// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	transform "github.com/FACorreiaa/visitor-arrivals/internal/domain/transform/service"
	"github.com/FACorreiaa/visitor-arrivals/pkg/storage"
)

const sweepTimeout = 30 * time.Minute

// Transformer runs transform jobs.
type Transformer interface {
	Run(ctx context.Context, job transform.Job) (*transform.Result, error)
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron        *cron.Cron
	transformer Transformer
	job         transform.Job
	logger      *slog.Logger
}

// NewScheduler creates a new job scheduler.
func NewScheduler(transformer Transformer, job transform.Job, logger *slog.Logger) *Scheduler {
	// Create cron with seconds disabled (standard 5-field format)
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:        c,
		transformer: transformer,
		job:         job,
		logger:      logger,
	}
}

// Start registers the transform sweep on spec and starts the scheduler.
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.String("transform_sweep", spec),
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers the transform sweep.
func (s *Scheduler) RunNow() {
	go s.sweep()
}

// sweep transforms the newest staged file, if any. Files that arrived while
// event delivery was down are picked up here.
func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	s.logger.Info("starting transform sweep", slog.String("src_path", s.job.SrcPath))

	result, err := s.transformer.Run(ctx, s.job)
	if errors.Is(err, storage.ErrNoMatch) {
		s.logger.Debug("transform sweep found nothing to process")
		return
	}
	if err != nil {
		s.logger.Error("transform sweep failed", slog.Any("error", err))
		return
	}

	s.logger.Info("transform sweep completed",
		slog.String("source", result.Source.Key),
		slog.Int("year", result.Year),
		slog.Int("records", result.Records),
	)
}
