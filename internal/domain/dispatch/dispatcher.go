package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/FACorreiaa/visitor-arrivals/pkg/metrics"
)

// Dispatcher turns staged-object notifications into transform job runs.
type Dispatcher struct {
	runner  JobRunner
	jobName string
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher. A nil limiter disables rate limiting.
func NewDispatcher(runner JobRunner, jobName string, limiter *rate.Limiter, logger *slog.Logger) *Dispatcher {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}
	return &Dispatcher{
		runner:  runner,
		jobName: jobName,
		limiter: limiter,
		logger:  logger,
	}
}

// Arguments returns the run arguments for a triggering object.
func Arguments(bucket, key string) map[string]string {
	return map[string]string{
		ArgBucket: bucket,
		ArgKey:    key,
	}
}

// Dispatch starts one run of the configured job for bucket/key.
func (d *Dispatcher) Dispatch(ctx context.Context, bucket, key string) (runID string, err error) {
	defer func() { metrics.ObserveJob(metrics.StageDispatch, err) }()

	if err := d.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("dispatch rate limit: %w", err)
	}

	runID, err = d.runner.StartJobRun(ctx, d.jobName, Arguments(bucket, key))
	if err != nil {
		return "", fmt.Errorf("failed to start %s: %w", d.jobName, err)
	}

	d.logger.Info("started job run",
		slog.String("job", d.jobName),
		slog.String("run_id", runID),
		slog.String("object", "s3://"+bucket+"/"+key),
	)
	return runID, nil
}
