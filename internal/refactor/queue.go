package refactor

import (
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/vulminator-io/vulminator/internal/findings"
	"github.com/vulminator-io/vulminator/pkg/shared/config"
	"github.com/vulminator-io/vulminator/pkg/shared/files"
)

// Task is a file queued for annotation.
type Task struct {
	FilePath string
	Severity findings.Severity
	Summary  string
	Snippet  string
}

// Result is the outcome of annotating one Task.
type Result struct {
	Task    Task
	Applied bool
	Message string
}

// BuildQueue selects up to cfg.MaxTasks distinct existing files referenced by findings whose
// severity is in cfg.Severities. Selection follows the order of fs; files are deduplicated by
// resolved path and files without readable content are skipped.
func BuildQueue(root string, fs []findings.Finding, cfg config.Refactor, logger hclog.Logger) []Task {
	maxTasks := config.SetThen(cfg.MaxTasks, config.DefaultRefactorMaxTasks)
	snippetSize := config.SetThen(cfg.SnippetSize, config.DefaultSnippetSize)

	// paths are compared after symlink resolution, so relativise against the resolved root
	realRoot, err := files.EnsureWithinRoot(root, root)
	if err != nil {
		realRoot = root
	}

	var tasks []Task
	seen := make(map[string]struct{})
	for _, f := range fs {
		if len(tasks) >= maxTasks {
			break
		}
		if f.FilePath == nil || *f.FilePath == "" || !f.Severity.In(cfg.Severities) {
			continue
		}

		path, err := files.EnsureWithinRoot(root, filepath.Join(root, *f.FilePath))
		if err != nil {
			logger.Warn("skipping finding outside the repository", "path", *f.FilePath, "error", err)
			continue
		}
		if _, ok := seen[path]; ok {
			continue
		}

		snippet, err := files.ReadPrefix(path, snippetSize)
		if err != nil || strings.TrimSpace(string(snippet)) == "" {
			continue
		}

		rel, err := filepath.Rel(realRoot, path)
		if err != nil {
			continue
		}
		seen[path] = struct{}{}
		tasks = append(tasks, Task{
			FilePath: filepath.ToSlash(rel),
			Severity: f.Severity,
			Summary:  f.Summary,
			Snippet:  string(snippet),
		})
	}
	return tasks
}
