package git

import (
	"context"
	"fmt"

	"github.com/gitsight/go-vcsurl"
	"github.com/go-git/go-git/v5"

	"github.com/vulminator-io/vulminator/pkg/shared/config"
	log "github.com/vulminator-io/vulminator/pkg/shared/logger"
)

// Clone makes a shallow single-branch clone of cloneURL's default branch into targetFolder.
func (c *Client) Clone(ctx context.Context, cloneURL, targetFolder string) (string, error) {
	name := cloneURL
	if info, err := vcsurl.Parse(cloneURL); err == nil {
		name = info.FullName
	} else {
		c.logger.Debug("clone URL is not a recognised VCS URL", "cloneURL", cloneURL, "error", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Debug("starting repository clone", "repository", name, "cloneURL", cloneURL, "targetFolder", targetFolder)
	_, err := git.PlainCloneContext(ctx, targetFolder, false, &git.CloneOptions{
		URL:             cloneURL,
		Progress:        log.GetLoggerOutput(c.logger),
		Depth:           config.SetThen(c.globalConfig.GitClient.Depth, 1),
		SingleBranch:    true,
		Tags:            git.NoTags,
		InsecureSkipTLS: c.insecureTLS(),
	})
	if err != nil {
		c.logger.Error("error occurred during clone", "error", err, "targetFolder", targetFolder)
		return "", fmt.Errorf("error occurred during clone: %w", err)
	}

	c.logger.Info("repository cloned", "repository", name, "targetFolder", targetFolder)
	return targetFolder, nil
}
