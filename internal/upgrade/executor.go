package upgrade

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/vulminator-io/vulminator/internal/runner"
	"github.com/vulminator-io/vulminator/pkg/shared/files"
)

const maxMessageLength = 4000

// Action is the outcome of one attempted upgrade.
type Action struct {
	Manifest string
	Package  string
	Command  []string
	Success  bool
	Message  string
}

// Error reports the upgrade that stopped the run's upgrade step.
type Error struct {
	Manifest string
	Package  string
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("Failed to upgrade %s in %s: %s", e.Package, e.Manifest, e.Message)
}

// Executor installs the latest version of every planned package.
type Executor struct {
	runner            runner.Runner
	binary            string
	continueOnFailure bool
	logger            hclog.Logger
}

// NewExecutor creates an Executor. With continueOnFailure false the first failure ends Apply.
func NewExecutor(r runner.Runner, binary string, continueOnFailure bool, logger hclog.Logger) *Executor {
	return &Executor{
		runner:            r,
		binary:            binary,
		continueOnFailure: continueOnFailure,
		logger:            logger,
	}
}

// Apply runs `<binary> install <pkg>@latest` in each manifest folder under root.
// On a fail-fast abort it returns the actions completed so far together with an *Error.
// Applied upgrades are never rolled back.
func (e *Executor) Apply(ctx context.Context, root string, plan Plan) ([]Action, error) {
	var actions []Action

	for _, entry := range plan {
		dir, err := files.EnsureWithinRoot(root, filepath.Join(root, filepath.Dir(entry.Manifest)))
		if err != nil {
			return actions, &Error{Manifest: entry.Manifest, Message: err.Error()}
		}

		for _, pkg := range entry.Packages {
			action := e.install(ctx, dir, entry.Manifest, pkg)
			actions = append(actions, action)
			if action.Success {
				e.logger.Info("upgraded package", "package", pkg, "manifest", entry.Manifest)
				continue
			}

			e.logger.Warn("package upgrade failed", "package", pkg, "manifest", entry.Manifest, "message", action.Message)
			if !e.continueOnFailure {
				return actions, &Error{Manifest: entry.Manifest, Package: pkg, Message: action.Message}
			}
		}
	}
	return actions, nil
}

func (e *Executor) install(ctx context.Context, dir, manifest, pkg string) Action {
	args := []string{"install", pkg + "@latest"}
	action := Action{
		Manifest: manifest,
		Package:  pkg,
		Command:  append([]string{e.binary}, args...),
	}

	res, err := e.runner.Run(ctx, dir, e.binary, args...)
	switch {
	case err != nil:
		action.Message = err.Error()
	default:
		action.Success = res.ExitCode == 0
		action.Message = res.Output()
		if action.Message == "" {
			action.Message = "Command executed"
		}
	}
	action.Message = truncate(action.Message, maxMessageLength)
	return action
}

// truncate keeps at most n characters of s.
func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}
