package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/vulminator-io/vulminator/pkg/shared/files"
)

const repoFolderName = "repo"

// Cloner fetches a repository into a target folder.
type Cloner interface {
	Clone(ctx context.Context, cloneURL, targetFolder string) (string, error)
}

// Workspace owns the on-disk clone of one run, keyed by the run identifier.
type Workspace struct {
	runID  string
	root   string
	cloner Cloner
	logger hclog.Logger

	mu      sync.Mutex
	repoDir string
}

// New creates the workspace root <home>/<runID>.
func New(home, runID string, cloner Cloner, logger hclog.Logger) (*Workspace, error) {
	if runID == "" {
		return nil, fmt.Errorf("run id is required")
	}
	root := filepath.Join(home, runID)
	if err := files.CreateFolderIfNotExists(root); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return &Workspace{
		runID:  runID,
		root:   root,
		cloner: cloner,
		logger: logger,
	}, nil
}

// Root returns the workspace root folder.
func (w *Workspace) Root() string {
	return w.root
}

// RepoDir returns the clone folder, which exists only after a successful Clone.
func (w *Workspace) RepoDir() string {
	return filepath.Join(w.root, repoFolderName)
}

// Clone clones cloneURL once. Later calls return the existing folder without cloning again.
func (w *Workspace) Clone(ctx context.Context, cloneURL string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.repoDir != "" {
		return w.repoDir, nil
	}

	target := w.RepoDir()
	if _, err := os.Stat(target); err == nil {
		w.logger.Debug("reusing existing clone", "targetFolder", target)
		w.repoDir = target
		return target, nil
	}

	dir, err := w.cloner.Clone(ctx, cloneURL, target)
	if err != nil {
		// a partial clone must not be mistaken for a finished one
		_ = os.RemoveAll(target)
		return "", err
	}
	w.repoDir = dir
	return dir, nil
}

// Resolve joins rel to the clone folder and rejects paths that escape it.
func (w *Workspace) Resolve(rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("path %q must be relative to the repository", rel)
	}
	return files.EnsureWithinRoot(w.RepoDir(), filepath.Join(w.RepoDir(), rel))
}

// Cleanup is a no-op: workspaces are left on disk and reclaimed outside the run.
func (w *Workspace) Cleanup() error {
	return nil
}
