package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/vulminator-io/vulminator/internal/findings"
)

const shutdownMessage = "Service shut down before the run started"

// Result is what an Executor reports for a run that did not fail fatally.
type Result struct {
	Findings []findings.Finding
	PRURL    string
	Message  string
}

// Executor runs the analysis of one request. A returned error fails the run with its message.
type Executor interface {
	Execute(ctx context.Context, runID string, req Request) (Result, error)
}

// Service schedules each submitted run on its own goroutine, with at most
// maxJobs runs executing at a time.
type Service struct {
	registry *Registry
	executor Executor
	logger   hclog.Logger

	guard  chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	// mu orders wg.Add in Enqueue against wg.Wait in Shutdown.
	mu      sync.Mutex
	closing chan struct{}
	closed  bool
}

// NewService creates a Service. maxJobs below one is treated as one.
func NewService(registry *Registry, executor Executor, maxJobs int, logger hclog.Logger) *Service {
	if maxJobs < 1 {
		maxJobs = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		registry: registry,
		executor: executor,
		logger:   logger,
		guard:    make(chan struct{}, maxJobs),
		ctx:      ctx,
		cancel:   cancel,
		closing:  make(chan struct{}),
	}
}

// Enqueue registers req and schedules it. It returns immediately with the run id.
// After Shutdown the run is registered as failed and never executed.
func (s *Service) Enqueue(req Request) string {
	run := s.registry.Create(req)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Warn("run rejected, service is shut down", "run_id", run.ID, "repo_url", req.RepoURL)
		s.finish(run.ID, StatusFailed, Result{Message: shutdownMessage})
		return run.ID
	}
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("run queued", "run_id", run.ID, "repo_url", req.RepoURL, "preset", req.Preset)
	go s.execute(run.ID, req)
	return run.ID
}

// Status returns the current snapshot of a run.
func (s *Service) Status(runID string) (Run, error) {
	return s.registry.Get(runID)
}

// Run executes req synchronously on the caller's goroutine and returns the final snapshot.
func (s *Service) Run(ctx context.Context, req Request) Run {
	run := s.registry.Create(req)
	s.process(ctx, run.ID, req)
	final, _ := s.registry.Get(run.ID)
	return final
}

// Shutdown stops accepting queued runs and waits for running ones. When ctx expires first,
// the context handed to executors is cancelled and ctx.Err() is returned.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.closing)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

func (s *Service) execute(runID string, req Request) {
	defer s.wg.Done()

	select {
	case s.guard <- struct{}{}:
	case <-s.closing:
		s.finish(runID, StatusFailed, Result{Message: shutdownMessage})
		return
	}
	defer func() { <-s.guard }()

	s.process(s.ctx, runID, req)
}

func (s *Service) process(ctx context.Context, runID string, req Request) {
	running := StatusRunning
	s.registry.Update(runID, Patch{Status: &running})
	logger := s.logger.With("run_id", runID)
	logger.Info("run started")

	defer func() {
		if r := recover(); r != nil {
			logger.Error("run panicked", "panic", r)
			s.finish(runID, StatusFailed, Result{Message: fmt.Sprintf("internal error: %v", r)})
		}
	}()

	result, err := s.executor.Execute(ctx, runID, req)
	if err != nil {
		logger.Error("run failed", "error", err)
		s.finish(runID, StatusFailed, Result{Findings: result.Findings, Message: err.Error()})
		return
	}

	logger.Info("run completed", "findings", len(result.Findings), "pr_url", result.PRURL)
	s.finish(runID, StatusCompleted, result)
}

func (s *Service) finish(runID string, status Status, result Result) {
	patch := Patch{Status: &status, Message: &result.Message, Findings: result.Findings}
	if result.PRURL != "" {
		patch.PRURL = &result.PRURL
	}
	s.registry.Update(runID, patch)
}
