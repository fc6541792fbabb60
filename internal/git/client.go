package git

import (
	"time"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/hashicorp/go-hclog"

	"github.com/vulminator-io/vulminator/pkg/shared/config"
)

// tokenUsername is accepted by GitHub for token based basic auth.
const tokenUsername = "x-access-token"

// Client performs the repository operations of a run with go-git.
type Client struct {
	logger       hclog.Logger
	timeout      time.Duration
	globalConfig *config.Config
}

// New initializes a new Git Client with the given parameters.
func New(logger hclog.Logger, globalConfig *config.Config) *Client {
	if globalConfig == nil {
		globalConfig = &config.Config{}
	}
	return &Client{
		logger:       logger,
		timeout:      config.SetThen(globalConfig.GitClient.Timeout, 10*time.Minute),
		globalConfig: globalConfig,
	}
}

// tokenAuth returns HTTP basic authentication with token as password, or nil for anonymous access.
func tokenAuth(token string) transport.AuthMethod {
	if token == "" {
		return nil
	}
	return &http.BasicAuth{
		Username: tokenUsername,
		Password: token,
	}
}

func (c *Client) insecureTLS() bool {
	return config.GetBoolValue(c.globalConfig.GitClient, "InsecureTLS", false)
}
