// Package runnertest provides a scripted runner.Runner for tests.
package runnertest

import (
	"context"
	"strings"
	"sync"

	"github.com/vulminator-io/vulminator/internal/runner"
	sharederrors "github.com/vulminator-io/vulminator/pkg/shared/errors"
)

// Call records one invocation.
type Call struct {
	Dir  string
	Name string
	Args []string
}

// Line returns the command line of the call.
func (c Call) Line() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Fake answers every Run with Handler. Tools listed in Missing behave as not installed.
type Fake struct {
	Handler func(call Call) (runner.Result, error)
	Missing map[string]bool

	mu    sync.Mutex
	calls []Call
}

// Run records the call and delegates to Handler.
func (f *Fake) Run(_ context.Context, dir, name string, args ...string) (runner.Result, error) {
	if f.Missing[name] {
		return runner.Result{}, sharederrors.NewToolNotFoundError(name)
	}
	call := Call{Dir: dir, Name: name, Args: append([]string(nil), args...)}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	if f.Handler == nil {
		return runner.Result{}, nil
	}
	return f.Handler(call)
}

// LookPath fails for tools listed in Missing.
func (f *Fake) LookPath(name string) (string, error) {
	if f.Missing[name] {
		return "", sharederrors.NewToolNotFoundError(name)
	}
	return "/usr/bin/" + name, nil
}

// Calls returns a copy of the recorded invocations.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsTo returns the recorded invocations of the named tool.
func (f *Fake) CallsTo(name string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}
