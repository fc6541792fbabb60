package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulminator-io/vulminator/internal/findings"
)

type executorFunc func(ctx context.Context, runID string, req Request) (Result, error)

func (f executorFunc) Execute(ctx context.Context, runID string, req Request) (Result, error) {
	return f(ctx, runID, req)
}

func waitTerminal(t *testing.T, s *Service, id string) Run {
	t.Helper()
	var run Run
	require.Eventually(t, func() bool {
		var err error
		run, err = s.Status(id)
		return err == nil && run.Status.Terminal()
	}, 5*time.Second, 5*time.Millisecond)
	return run
}

func TestServiceCompletesRun(t *testing.T) {
	exec := executorFunc(func(_ context.Context, runID string, req Request) (Result, error) {
		return Result{
			Findings: []findings.Finding{findings.New("Semgrep", findings.SeverityInfo, req.RepoURL)},
			PRURL:    "https://github.com/acme/shop/pull/1",
			Message:  "Opened pull request",
		}, nil
	})
	s := NewService(NewRegistry(), exec, 2, hclog.NewNullLogger())

	id := s.Enqueue(Request{RepoURL: "https://github.com/acme/shop"})
	run := waitTerminal(t, s, id)

	assert.Equal(t, StatusCompleted, run.Status)
	assert.Equal(t, "Opened pull request", run.Message)
	assert.Equal(t, "https://github.com/acme/shop/pull/1", run.PRURL)
	assert.Len(t, run.Findings, 1)
	require.NoError(t, s.Shutdown(context.Background()))
}

func TestServiceFailedAndPanickingRuns(t *testing.T) {
	tests := []struct {
		name        string
		exec        executorFunc
		wantMessage string
	}{
		{
			name: "executor error",
			exec: func(context.Context, string, Request) (Result, error) {
				return Result{}, errors.New("failed to clone repository: authentication required")
			},
			wantMessage: "failed to clone repository: authentication required",
		},
		{
			name: "executor panic",
			exec: func(context.Context, string, Request) (Result, error) {
				panic("boom")
			},
			wantMessage: "internal error: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewService(NewRegistry(), tt.exec, 1, hclog.NewNullLogger())

			run := waitTerminal(t, s, s.Enqueue(Request{}))

			assert.Equal(t, StatusFailed, run.Status)
			assert.Equal(t, tt.wantMessage, run.Message)
			assert.Empty(t, run.PRURL)
		})
	}
}

func TestServiceBoundsConcurrency(t *testing.T) {
	var active, peak int32
	release := make(chan struct{})
	exec := executorFunc(func(context.Context, string, Request) (Result, error) {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		<-release
		atomic.AddInt32(&active, -1)
		return Result{Message: "ok"}, nil
	})
	s := NewService(NewRegistry(), exec, 2, hclog.NewNullLogger())

	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, s.Enqueue(Request{}))
	}
	require.Eventually(t, func() bool { return atomic.LoadInt32(&active) == 2 }, 5*time.Second, 5*time.Millisecond)

	queued := 0
	for _, id := range ids {
		run, err := s.Status(id)
		require.NoError(t, err)
		if run.Status == StatusQueued {
			queued++
		}
	}
	assert.Equal(t, 3, queued)

	close(release)
	for _, id := range ids {
		assert.Equal(t, StatusCompleted, waitTerminal(t, s, id).Status)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&peak))
}

func TestServiceShutdown(t *testing.T) {
	release := make(chan struct{})
	exec := executorFunc(func(ctx context.Context, _ string, _ Request) (Result, error) {
		select {
		case <-release:
			return Result{Message: "ok"}, nil
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	})
	s := NewService(NewRegistry(), exec, 1, hclog.NewNullLogger())

	first := s.Enqueue(Request{})
	require.Eventually(t, func() bool {
		run, _ := s.Status(first)
		return run.Status == StatusRunning
	}, 5*time.Second, 5*time.Millisecond)
	second := s.Enqueue(Request{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := s.Shutdown(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StatusFailed, waitTerminal(t, s, first).Status, "running run sees a cancelled context")
	queued := waitTerminal(t, s, second)
	assert.Equal(t, StatusFailed, queued.Status)
	assert.Equal(t, shutdownMessage, queued.Message)
	close(release)
}

func TestServiceEnqueueAfterShutdown(t *testing.T) {
	var calls atomic.Int32
	exec := executorFunc(func(context.Context, string, Request) (Result, error) {
		calls.Add(1)
		return Result{}, nil
	})
	s := NewService(NewRegistry(), exec, 2, hclog.NewNullLogger())
	require.NoError(t, s.Shutdown(context.Background()))

	id := s.Enqueue(Request{RepoURL: "https://github.com/acme/shop"})

	run, err := s.Status(id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, run.Status)
	assert.Equal(t, shutdownMessage, run.Message)
	assert.Zero(t, calls.Load())
	require.NoError(t, s.Shutdown(context.Background()))
}

func TestServiceEnqueueDuringShutdown(t *testing.T) {
	exec := executorFunc(func(context.Context, string, Request) (Result, error) {
		return Result{}, nil
	})
	s := NewService(NewRegistry(), exec, 2, hclog.NewNullLogger())

	ids := make(chan string, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < cap(ids); i++ {
			ids <- s.Enqueue(Request{})
		}
	}()
	require.NoError(t, s.Shutdown(context.Background()))
	<-done
	close(ids)

	for id := range ids {
		assert.True(t, waitTerminal(t, s, id).Status.Terminal())
	}
}

func TestServiceRunSynchronously(t *testing.T) {
	exec := executorFunc(func(context.Context, string, Request) (Result, error) {
		return Result{Message: "Skipped PR (no GitHub token provided)"}, nil
	})
	s := NewService(NewRegistry(), exec, 1, hclog.NewNullLogger())

	run := s.Run(context.Background(), Request{RepoURL: "https://github.com/acme/shop"})

	assert.Equal(t, StatusCompleted, run.Status)
	assert.Equal(t, "Skipped PR (no GitHub token provided)", run.Message)
}
