package cron

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	transform "github.com/FACorreiaa/visitor-arrivals/internal/domain/transform/service"
	"github.com/FACorreiaa/visitor-arrivals/pkg/storage"
)

type fakeTransformer struct {
	mu   sync.Mutex
	jobs []transform.Job
	err  error
}

func (f *fakeTransformer) Run(_ context.Context, job transform.Job) (*transform.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	if f.err != nil {
		return nil, f.err
	}
	return &transform.Result{Year: 2023, Records: 10}, nil
}

func (f *fakeTransformer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

var job = transform.Job{SrcPath: "data/staging/*.csv", OutputPath: "data/dataset/", ProcessedPrefix: "processed/"}

func TestScheduler_Sweep(t *testing.T) {
	for _, err := range []error{nil, storage.ErrNoMatch, errors.New("boom")} {
		ft := &fakeTransformer{err: err}
		NewScheduler(ft, job, testLogger()).sweep()
		require.Equal(t, 1, ft.calls())
		assert.Equal(t, job, ft.jobs[0])
	}
}

func TestScheduler_RunNow(t *testing.T) {
	ft := &fakeTransformer{}
	NewScheduler(ft, job, testLogger()).RunNow()

	assert.Eventually(t, func() bool { return ft.calls() == 1 }, time.Second, 10*time.Millisecond)
}

func TestScheduler_StartRejectsBadSpec(t *testing.T) {
	s := NewScheduler(&fakeTransformer{}, job, testLogger())
	assert.Error(t, s.Start("not a cron spec"))

	require.NoError(t, s.Start("*/5 * * * *"))
	<-s.Stop().Done()
}
