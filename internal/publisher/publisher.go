package publisher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/vulminator-io/vulminator/internal/git"
	"github.com/vulminator-io/vulminator/internal/github"
	"github.com/vulminator-io/vulminator/pkg/shared/config"
)

const (
	branchTimeLayout    = "20060102-150405"
	generatedTimeLayout = "2006-01-02T15:04:05"
)

// Request describes the report of one finished run to publish.
type Request struct {
	RepoDir      string
	RepoURL      string
	Token        string
	ReportPath   string
	ReportText   string
	FindingCount int
}

// Publisher turns the working tree of a run into a pull request and returns its URL.
type Publisher interface {
	Publish(ctx context.Context, req Request) (string, error)
}

// Hosting is the repository-hosting API used for publication.
type Hosting interface {
	GetRepoByURL(ctx context.Context, repoURL string) (*github.Repository, error)
	EnsureFork(ctx context.Context, upstream *github.Repository) (*github.Repository, error)
	CreatePullRequest(ctx context.Context, upstream *github.Repository, head, base, title, body string) (string, error)
}

// HostingFactory creates a Hosting client authenticated with token.
type HostingFactory func(token string) (Hosting, error)

// VCS is the version control surface used for publication.
type VCS interface {
	CurrentBranch(repoFolder string) (string, error)
	CreateBranch(repoFolder, branch string) error
	CommitAll(repoFolder, message string, author git.Signature) (string, error)
	PushBranch(ctx context.Context, repoFolder, remoteName, remoteURL, branch, token string) error
	HeadDiffStats(repoFolder string) (git.DiffStats, error)
}

// GitHubPublisher publishes through a fork of the target repository.
type GitHubPublisher struct {
	cfg     config.Publisher
	vcs     VCS
	hosting HostingFactory
	logger  hclog.Logger
	now     func() time.Time
}

// New creates a GitHubPublisher.
func New(cfg config.Publisher, vcs VCS, hosting HostingFactory, logger hclog.Logger) *GitHubPublisher {
	return &GitHubPublisher{
		cfg:     cfg,
		vcs:     vcs,
		hosting: hosting,
		logger:  logger,
		now:     time.Now,
	}
}

// GitHubHosting returns a HostingFactory backed by the GitHub REST API.
func GitHubHosting(logger hclog.Logger, cfg *config.Config) HostingFactory {
	return func(token string) (Hosting, error) {
		return github.NewService(logger, cfg, token)
	}
}

// Publish resolves the target, forks it, commits the working tree on a fresh branch,
// force-pushes that branch to the fork and opens a pull request to the default branch.
// The first failing step aborts the rest.
func (p *GitHubPublisher) Publish(ctx context.Context, req Request) (string, error) {
	hosting, err := p.hosting(req.Token)
	if err != nil {
		return "", err
	}

	upstream, err := hosting.GetRepoByURL(ctx, req.RepoURL)
	if err != nil {
		return "", err
	}
	fork, err := hosting.EnsureFork(ctx, upstream)
	if err != nil {
		return "", err
	}

	now := p.now().UTC()
	branch := BranchName(p.cfg.BranchPrefix, now)

	base, err := p.vcs.CurrentBranch(req.RepoDir)
	if err != nil {
		return "", err
	}
	p.logger.Debug("creating publication branch", "from", base, "branch", branch)
	if err := p.vcs.CreateBranch(req.RepoDir, branch); err != nil {
		return "", err
	}

	author := git.Signature{Name: p.cfg.AuthorName, Email: p.cfg.AuthorEmail}
	commitMessage := fmt.Sprintf("Add Vulminator report (%d findings)", req.FindingCount)
	if _, err := p.vcs.CommitAll(req.RepoDir, commitMessage, author); err != nil {
		return "", err
	}

	if err := p.vcs.PushBranch(ctx, req.RepoDir, p.cfg.RemoteName, fork.CloneURL, branch, req.Token); err != nil {
		return "", err
	}

	var stats *git.DiffStats
	if s, err := p.vcs.HeadDiffStats(req.RepoDir); err != nil {
		p.logger.Warn("unable to compute diff stats", "error", err)
	} else {
		stats = &s
	}

	title := fmt.Sprintf("Vulminator security report (%d findings)", req.FindingCount)
	body := BuildBody(req.FindingCount, req.ReportPath, req.ReportText, now, stats, p.cfg.ExcerptLines)
	head := fmt.Sprintf("%s:%s", fork.Owner, branch)

	url, err := hosting.CreatePullRequest(ctx, upstream, head, upstream.DefaultBranch, title, body)
	if err != nil {
		return "", err
	}
	p.logger.Info("pull request opened", "url", url)
	return url, nil
}

// BranchName returns "<prefix>/<UTC timestamp to the second>".
func BranchName(prefix string, t time.Time) string {
	return fmt.Sprintf("%s/%s", config.SetThen(prefix, config.DefaultBranchPrefix), t.UTC().Format(branchTimeLayout))
}

// BuildBody renders the pull request description with the first excerptLines lines of the report.
func BuildBody(count int, reportPath, report string, generated time.Time, stats *git.DiffStats, excerptLines int) string {
	excerptLines = config.SetThen(excerptLines, config.DefaultExcerptLines)
	lines := strings.Split(report, "\n")
	if len(lines) > excerptLines {
		lines = lines[:excerptLines]
	}

	var b strings.Builder
	b.WriteString("## Vulminator Security Report\n\n")
	fmt.Fprintf(&b, "- Total findings: **%d**\n", count)
	fmt.Fprintf(&b, "- Report file: `%s`\n", reportPath)
	fmt.Fprintf(&b, "- Generated: %s UTC\n", generated.UTC().Format(generatedTimeLayout))
	if stats != nil {
		fmt.Fprintf(&b, "- %s\n", stats)
	}
	b.WriteString("\n---\n\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\n---\nAutomated by Vulminator.")
	return b.String()
}
