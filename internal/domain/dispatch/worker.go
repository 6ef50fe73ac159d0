package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	transform "github.com/FACorreiaa/visitor-arrivals/internal/domain/transform/service"
	"github.com/FACorreiaa/visitor-arrivals/pkg/broker"
)

// Transformer runs transform jobs.
type Transformer interface {
	Run(ctx context.Context, job transform.Job) (*transform.Result, error)
}

// Worker executes queued transform job runs.
type Worker struct {
	transformer Transformer
	defaults    transform.Job
	logger      *slog.Logger
}

// NewWorker creates a worker. defaults supplies the locations a run does not
// override.
func NewWorker(transformer Transformer, defaults transform.Job, logger *slog.Logger) *Worker {
	return &Worker{transformer: transformer, defaults: defaults, logger: logger}
}

// JobFor applies a run's argument overrides to the worker defaults.
func (w *Worker) JobFor(run TransformJob) transform.Job {
	job := w.defaults
	if v := run.Arguments[ArgSrcPath]; v != "" {
		job.SrcPath = v
	}
	if v := run.Arguments[ArgOutputPath]; v != "" {
		job.OutputPath = v
	}
	if v := run.Arguments[ArgProcessedPrefix]; v != "" {
		job.ProcessedPrefix = v
	}
	return job
}

// HandleMessage is a broker.Handler for the job queue.
func (w *Worker) HandleMessage(ctx context.Context, body []byte) error {
	var run TransformJob
	if err := json.Unmarshal(body, &run); err != nil {
		return fmt.Errorf("%w: %v", broker.ErrMalformed, err)
	}
	if run.RunID == "" {
		return fmt.Errorf("%w: job run without id", broker.ErrMalformed)
	}

	logger := w.logger.With(
		slog.String("job", run.JobName),
		slog.String("run_id", run.RunID),
	)
	logger.Info("job run started",
		slog.String("trigger_bucket", run.Arguments[ArgBucket]),
		slog.String("trigger_key", run.Arguments[ArgKey]),
	)

	result, err := w.transformer.Run(ctx, w.JobFor(run))
	if err != nil {
		return fmt.Errorf("job run %s: %w", run.RunID, err)
	}

	logger.Info("job run succeeded",
		slog.String("source", result.Source.Key),
		slog.Int("records", result.Records),
	)
	return nil
}
