package git

import (
	"fmt"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// DiffStats summarises the change introduced by a commit.
type DiffStats struct {
	Files   int
	Added   int
	Deleted int
}

// String renders the stats as used in pull request bodies.
func (s DiffStats) String() string {
	return fmt.Sprintf("Changed files: %d (+%d/-%d)", s.Files, s.Added, s.Deleted)
}

// HeadDiffStats computes DiffStats of HEAD against its first parent.
// A root commit is compared against an empty tree.
func (c *Client) HeadDiffStats(repoFolder string) (DiffStats, error) {
	repo, err := git.PlainOpen(repoFolder)
	if err != nil {
		return DiffStats{}, fmt.Errorf("failed to open repository %q: %w", repoFolder, err)
	}
	head, err := repo.Head()
	if err != nil {
		return DiffStats{}, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	headCommit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return DiffStats{}, fmt.Errorf("failed to load HEAD commit: %w", err)
	}
	headTree, err := headCommit.Tree()
	if err != nil {
		return DiffStats{}, fmt.Errorf("failed to load head tree: %w", err)
	}

	var baseTree *object.Tree
	if headCommit.NumParents() > 0 {
		parent, err := headCommit.Parent(0)
		if err != nil {
			return DiffStats{}, fmt.Errorf("failed to load parent commit: %w", err)
		}
		if baseTree, err = parent.Tree(); err != nil {
			return DiffStats{}, fmt.Errorf("failed to load base tree: %w", err)
		}
	}

	changes, err := object.DiffTree(baseTree, headTree)
	if err != nil {
		return DiffStats{}, fmt.Errorf("failed to compute changes: %w", err)
	}
	patch, err := changes.Patch()
	if err != nil {
		return DiffStats{}, fmt.Errorf("failed to compute diff: %w", err)
	}
	return ParseDiffStats(patch.String())
}

// ParseDiffStats counts files and added/deleted lines of a unified diff.
func ParseDiffStats(raw string) (DiffStats, error) {
	parsed, _, err := gitdiff.Parse(strings.NewReader(raw))
	if err != nil {
		return DiffStats{}, fmt.Errorf("failed to parse diff: %w", err)
	}

	stats := DiffStats{Files: len(parsed)}
	for _, f := range parsed {
		for _, frag := range f.TextFragments {
			for _, line := range frag.Lines {
				switch line.Op {
				case gitdiff.OpAdd:
					stats.Added++
				case gitdiff.OpDelete:
					stats.Deleted++
				}
			}
		}
	}
	return stats, nil
}
