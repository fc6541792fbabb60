package refactor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/vulminator-io/vulminator/internal/runner"
	"github.com/vulminator-io/vulminator/pkg/shared/config"
	"github.com/vulminator-io/vulminator/pkg/shared/files"
)

const maxSummaryLength = 160

// Messages recorded on Results.
const (
	MsgUnsupported    = "Unsupported file type"
	MsgMissing        = "File missing on disk"
	MsgAlreadyPresent = "Comment already present"
	MsgInserted       = "Inserted Vulminator comment"
)

// Executor prepends an annotation comment to queued files and verifies them with a linter.
type Executor struct {
	runner runner.Runner
	cfg    config.Refactor
	logger hclog.Logger
}

// NewExecutor creates an Executor using the extension tables of cfg.
func NewExecutor(r runner.Runner, cfg config.Refactor, logger hclog.Logger) *Executor {
	return &Executor{
		runner: r,
		cfg:    cfg,
		logger: logger,
	}
}

// Comment builds the one-line annotation for task using prefix.
func Comment(task Task, prefix string) string {
	summary := strings.TrimSpace(task.Summary)
	if i := strings.IndexByte(summary, '\n'); i >= 0 {
		summary = strings.TrimSpace(summary[:i])
	}
	if r := []rune(summary); len(r) > maxSummaryLength {
		summary = string(r[:maxSummaryLength])
	}
	return fmt.Sprintf("%s Vulminator %s refactor: %s\n", prefix, task.Severity.Upper(), summary)
}

// Apply annotates every task under root. A failure is confined to its own file.
func (e *Executor) Apply(ctx context.Context, root string, tasks []Task) []Result {
	results := make([]Result, 0, len(tasks))
	for _, task := range tasks {
		res := e.applyOne(ctx, root, task)
		e.logger.Debug("refactor task finished", "path", task.FilePath, "applied", res.Applied, "message", res.Message)
		results = append(results, res)
	}
	return results
}

func (e *Executor) applyOne(ctx context.Context, root string, task Task) Result {
	result := Result{Task: task}

	ext := strings.ToLower(filepath.Ext(task.FilePath))
	prefix, ok := e.cfg.CommentPrefixes[ext]
	if !ok || prefix == "" {
		result.Message = MsgUnsupported
		return result
	}

	path, err := files.EnsureWithinRoot(root, filepath.Join(root, filepath.FromSlash(task.FilePath)))
	if err != nil {
		result.Message = fmt.Sprintf("Path rejected: %v", err)
		return result
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Message = MsgMissing
		return result
	}
	if err != nil {
		result.Message = fmt.Sprintf("Read error: %v", err)
		return result
	}

	original, err := os.ReadFile(path)
	if err != nil {
		result.Message = fmt.Sprintf("Read error: %v", err)
		return result
	}

	comment := Comment(task, prefix)
	if strings.Contains(string(original), strings.TrimSpace(comment)) {
		result.Message = MsgAlreadyPresent
		return result
	}

	annotated := make([]byte, 0, len(comment)+len(original))
	annotated = append(annotated, comment...)
	annotated = append(annotated, original...)
	if err := os.WriteFile(path, annotated, info.Mode().Perm()); err != nil {
		result.Message = fmt.Sprintf("Write error: %v", err)
		return result
	}

	if verr := e.verify(ctx, root, task.FilePath, ext); verr != "" {
		if err := os.WriteFile(path, original, info.Mode().Perm()); err != nil {
			e.logger.Error("failed to revert file", "path", task.FilePath, "error", err)
		}
		result.Message = "Verification failed: " + verr
		return result
	}

	result.Applied = true
	result.Message = MsgInserted
	return result
}

// verify runs the linter registered for ext and returns a failure description, or "" on success.
// A linter that cannot be started counts as a failure.
func (e *Executor) verify(ctx context.Context, root, rel, ext string) string {
	command, ok := e.cfg.VerifyCommands[ext]
	if !ok || len(command) == 0 {
		return ""
	}

	args := append(append([]string(nil), command[1:]...), rel)
	res, err := e.runner.Run(ctx, root, command[0], args...)
	if err != nil {
		return err.Error()
	}
	if res.ExitCode == 0 {
		return ""
	}
	return config.SetThen(res.Output(), "Verification failed")
}
