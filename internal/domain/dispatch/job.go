// Package dispatch starts transform job runs for staged CSV files and
// executes them on the worker side of the job queue.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/visitor-arrivals/pkg/broker"
)

// Job run argument names.
const (
	ArgBucket          = "--S3_BUCKET"
	ArgKey             = "--S3_KEY"
	ArgSrcPath         = "--SRC_PATH"
	ArgOutputPath      = "--OUTPUT_PATH"
	ArgProcessedPrefix = "--PROCESSED_PREFIX"
)

// TransformJob is the queued request for one run of a transform job.
type TransformJob struct {
	JobName     string            `json:"job_name"`
	RunID       string            `json:"run_id"`
	Arguments   map[string]string `json:"arguments"`
	RequestedAt time.Time         `json:"requested_at"`
}

// JobRunner starts runs of a named job.
type JobRunner interface {
	StartJobRun(ctx context.Context, jobName string, args map[string]string) (runID string, err error)
}

// QueueRunner starts job runs by publishing them to a durable queue.
type QueueRunner struct {
	publisher broker.Publisher
	queue     string
	now       func() time.Time
}

// NewQueueRunner creates a runner publishing to queue.
func NewQueueRunner(publisher broker.Publisher, queue string) *QueueRunner {
	return &QueueRunner{publisher: publisher, queue: queue, now: time.Now}
}

// StartJobRun enqueues a run and returns its id.
func (r *QueueRunner) StartJobRun(ctx context.Context, jobName string, args map[string]string) (string, error) {
	job := TransformJob{
		JobName:     jobName,
		RunID:       uuid.NewString(),
		Arguments:   args,
		RequestedAt: r.now().UTC(),
	}

	body, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to encode job run: %w", err)
	}
	if err := r.publisher.Publish(ctx, r.queue, body); err != nil {
		return "", fmt.Errorf("failed to enqueue job run: %w", err)
	}
	return job.RunID, nil
}
