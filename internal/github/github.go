package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gitsight/go-vcsurl"
	"github.com/google/go-github/v47/github"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"

	"github.com/vulminator-io/vulminator/pkg/shared/config"
	"github.com/vulminator-io/vulminator/pkg/shared/httpclient"
)

// Repository is the subset of repository metadata publication needs.
type Repository struct {
	Owner         string
	Name          string
	FullName      string
	DefaultBranch string
	CloneURL      string
}

// Service wraps the GitHub REST API for one access token.
type Service struct {
	client *github.Client
	logger hclog.Logger
}

// NewService builds a token-authenticated client on top of the shared HTTP client settings.
// publisher.api_url points it at another API root, such as GitHub Enterprise.
func NewService(logger hclog.Logger, cfg *config.Config, token string) (*Service, error) {
	base := httpclient.StandardClient(logger, cfg)
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	client := github.NewClient(oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})))

	if cfg != nil && cfg.Publisher.APIURL != "" {
		apiURL, err := url.Parse(strings.TrimSuffix(cfg.Publisher.APIURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", cfg.Publisher.APIURL, err)
		}
		client.BaseURL = apiURL
	}

	return &Service{client: client, logger: logger}, nil
}

// ParseRepoURL extracts owner and repository name from a repository URL.
func ParseRepoURL(raw string) (string, string, error) {
	info, err := vcsurl.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("unable to parse repository URL %q: %w", raw, err)
	}
	if info.Username == "" || info.Name == "" {
		return "", "", fmt.Errorf("repository URL %q does not name an owner and repository", raw)
	}
	return info.Username, strings.TrimSuffix(info.Name, ".git"), nil
}

// ValidateRepoURL checks that raw is an HTTPS URL naming an owner and a repository.
func ValidateRepoURL(raw string) error {
	if raw == "" {
		return errors.New("repo_url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("repo_url must be an HTTPS URL, got %q", raw)
	}
	_, _, err = ParseRepoURL(raw)
	return err
}

// GetRepoByURL resolves the repository a URL points to.
func (s *Service) GetRepoByURL(ctx context.Context, raw string) (*Repository, error) {
	owner, name, err := ParseRepoURL(raw)
	if err != nil {
		return nil, err
	}
	return s.GetRepo(ctx, owner, name)
}

func (s *Service) GetRepo(ctx context.Context, owner, name string) (*Repository, error) {
	repo, _, err := s.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get repository %s/%s: %w", owner, name, err)
	}
	return toRepository(repo), nil
}

// AuthenticatedLogin returns the login of the token owner.
func (s *Service) AuthenticatedLogin(ctx context.Context) (string, error) {
	user, _, err := s.client.Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("failed to get authenticated user: %w", err)
	}
	return user.GetLogin(), nil
}

// EnsureFork creates a fork of upstream for the authenticated user, or reuses the
// existing one when the API reports that it already exists.
func (s *Service) EnsureFork(ctx context.Context, upstream *Repository) (*Repository, error) {
	fork, _, err := s.client.Repositories.CreateFork(ctx, upstream.Owner, upstream.Name, &github.RepositoryCreateForkOptions{})

	var accepted *github.AcceptedError
	switch {
	case err == nil:
		return toRepository(fork), nil
	case errors.As(err, &accepted):
		// forking is asynchronous, the body still describes the fork
		pending := new(github.Repository)
		if jsonErr := json.Unmarshal(accepted.Raw, pending); jsonErr == nil && pending.GetFullName() != "" {
			s.logger.Debug("fork scheduled", "fork", pending.GetFullName())
			return toRepository(pending), nil
		}
	case !isAlreadyExists(err):
		return nil, fmt.Errorf("failed to fork %s: %w", upstream.FullName, err)
	}

	login, err := s.AuthenticatedLogin(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("reusing existing fork", "owner", login, "name", upstream.Name)
	return s.GetRepo(ctx, login, upstream.Name)
}

// CreatePullRequest opens a pull request against base of upstream and returns its HTML URL.
// head uses the "<owner>:<branch>" form for cross-repository pull requests.
func (s *Service) CreatePullRequest(ctx context.Context, upstream *Repository, head, base, title, body string) (string, error) {
	pr, _, err := s.client.PullRequests.Create(ctx, upstream.Owner, upstream.Name, &github.NewPullRequest{
		Title: github.String(title),
		Head:  github.String(head),
		Base:  github.String(base),
		Body:  github.String(body),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create pull request on %s: %w", upstream.FullName, err)
	}
	return pr.GetHTMLURL(), nil
}

func isAlreadyExists(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}

func toRepository(repo *github.Repository) *Repository {
	return &Repository{
		Owner:         repo.GetOwner().GetLogin(),
		Name:          repo.GetName(),
		FullName:      repo.GetFullName(),
		DefaultBranch: repo.GetDefaultBranch(),
		CloneURL:      repo.GetCloneURL(),
	}
}
