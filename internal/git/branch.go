package git

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	log "github.com/vulminator-io/vulminator/pkg/shared/logger"
)

// Signature identifies the author of commits made by a run.
type Signature struct {
	Name  string
	Email string
}

// CurrentBranch returns the short name of the checked out branch.
func (c *Client) CurrentBranch(repoFolder string) (string, error) {
	repo, err := git.PlainOpen(repoFolder)
	if err != nil {
		return "", fmt.Errorf("failed to open repository %q: %w", repoFolder, err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", ErrDetachedHead
	}
	return head.Name().Short(), nil
}

// CreateBranch creates branch at HEAD and checks it out, keeping working tree changes.
func (c *Client) CreateBranch(repoFolder, branch string) error {
	repo, err := git.PlainOpen(repoFolder)
	if err != nil {
		return fmt.Errorf("failed to open repository %q: %w", repoFolder, err)
	}
	w, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("error accessing worktree: %w", err)
	}

	c.logger.Debug("creating branch", "branch", branch, "targetFolder", repoFolder)
	if err := w.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: true,
		Keep:   true,
	}); err != nil {
		return fmt.Errorf("failed to create branch %q: %w", branch, err)
	}
	return nil
}

// CommitAll stages every working tree change, including deletions, and commits it.
func (c *Client) CommitAll(repoFolder, message string, author Signature) (string, error) {
	repo, err := git.PlainOpen(repoFolder)
	if err != nil {
		return "", fmt.Errorf("failed to open repository %q: %w", repoFolder, err)
	}
	w, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("error accessing worktree: %w", err)
	}

	if err := w.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", fmt.Errorf("failed to stage changes: %w", err)
	}

	hash, err := w.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author.Name,
			Email: author.Email,
			When:  time.Now(),
		},
		AllowEmptyCommits: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}

	c.logger.Debug("committed changes", "commit", hash.String(), "targetFolder", repoFolder)
	return hash.String(), nil
}

// PushBranch replaces remoteName with remoteURL and force-pushes branch to it.
func (c *Client) PushBranch(ctx context.Context, repoFolder, remoteName, remoteURL, branch, token string) error {
	repo, err := git.PlainOpen(repoFolder)
	if err != nil {
		return fmt.Errorf("failed to open repository %q: %w", repoFolder, err)
	}

	if err := repo.DeleteRemote(remoteName); err != nil && !errors.Is(err, git.ErrRemoteNotFound) {
		return fmt.Errorf("failed to remove remote %q: %w", remoteName, err)
	}
	if _, err := repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: remoteName,
		URLs: []string{remoteURL},
	}); err != nil {
		return fmt.Errorf("failed to add remote %q: %w", remoteName, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ref := plumbing.NewBranchReferenceName(branch)
	c.logger.Debug("pushing branch", "branch", branch, "remote", remoteName)
	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName:      remoteName,
		RefSpecs:        []gitconfig.RefSpec{gitconfig.RefSpec(fmt.Sprintf("+%s:%s", ref, ref))},
		Auth:            tokenAuth(token),
		Progress:        log.GetLoggerOutput(c.logger),
		Force:           true,
		InsecureSkipTLS: c.insecureTLS(),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to push branch %q: %w", branch, err)
	}
	return nil
}
