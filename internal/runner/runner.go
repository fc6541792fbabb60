package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	sharederrors "github.com/vulminator-io/vulminator/pkg/shared/errors"
)

// Result holds the outcome of one external command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Output returns trimmed stderr, falling back to stdout.
func (r Result) Output() string {
	if s := strings.TrimSpace(r.Stderr); s != "" {
		return s
	}
	return strings.TrimSpace(r.Stdout)
}

// Runner executes external tools. A non-zero exit code is reported in Result, not as an error.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (Result, error)
	LookPath(name string) (string, error)
}

// ExecRunner runs commands with os/exec, bounding each invocation by a timeout.
type ExecRunner struct {
	logger  hclog.Logger
	timeout time.Duration
}

// New creates an ExecRunner. A zero timeout disables the deadline.
func New(logger hclog.Logger, timeout time.Duration) *ExecRunner {
	return &ExecRunner{
		logger:  logger,
		timeout: timeout,
	}
}

// LookPath reports the resolved path of name or ErrToolNotFound.
func (r *ExecRunner) LookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", sharederrors.NewToolNotFoundError(name)
	}
	return path, nil
}

// Run executes name with args in dir and captures its output.
func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (Result, error) {
	if _, err := r.LookPath(name); err != nil {
		return Result{}, err
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("running command", "command", name, "args", args, "dir", dir)
	start := time.Now()
	err := cmd.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return result, fmt.Errorf("%s did not finish: %w", name, ctx.Err())
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		return result, fmt.Errorf("failed to run %s: %w", name, err)
	}

	r.logger.Debug("command finished", "command", name, "exitCode", result.ExitCode, "duration", time.Since(start))
	return result, nil
}
