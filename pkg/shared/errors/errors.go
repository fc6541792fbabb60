package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrToolNotFound is returned when an external command is not installed.
var ErrToolNotFound = errors.New("tool not found")

// ToolNotFoundError names the missing tool and wraps ErrToolNotFound.
type ToolNotFoundError struct {
	Tool string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("%s CLI not found in PATH", e.Tool)
}

func (e *ToolNotFoundError) Unwrap() error {
	return ErrToolNotFound
}

// NewToolNotFoundError creates a ToolNotFoundError for tool.
func NewToolNotFoundError(tool string) error {
	return &ToolNotFoundError{Tool: tool}
}

// ExecError describes an external command that exited with an unexpected code.
type ExecError struct {
	Command  []string
	ExitCode int
	Stderr   string
}

// Error implements the error interface.
func (e *ExecError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", strings.Join(e.Command, " "), e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

// NewExecError creates an ExecError for the given command invocation.
func NewExecError(command []string, code int, stderr string) *ExecError {
	return &ExecError{
		Command:  command,
		ExitCode: code,
		Stderr:   stderr,
	}
}

// CommandError represents a failed CLI command, storing the result document to print before exiting.
type CommandError struct {
	ExitCode    int
	CommonError string
	Result      interface{}
}

// Error implements the error interface, returning the message from the common error.
func (e *CommandError) Error() string {
	return e.CommonError
}

// NewCommandError creates a new CommandError instance, encapsulating the result and the error message.
func NewCommandError(result interface{}, err error, code int) *CommandError {
	return &CommandError{
		ExitCode:    code,
		CommonError: err.Error(),
		Result:      result,
	}
}
