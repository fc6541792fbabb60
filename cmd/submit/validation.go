package submit

import (
	"fmt"
	"net/url"

	"github.com/vulminator-io/vulminator/internal/github"
	"github.com/vulminator-io/vulminator/internal/jobs"
	"github.com/vulminator-io/vulminator/internal/scanner"
	"github.com/vulminator-io/vulminator/pkg/shared/config"
)

// validateSubmitArgs validates the arguments provided to the submit command and builds the run request.
func validateSubmitArgs(options *RunOptionsSubmit, args []string, cfg *config.Config) (jobs.Request, error) {
	if len(args) != 1 {
		return jobs.Request{}, fmt.Errorf("exactly one repository URL must be specified, got %d", len(args))
	}
	if err := github.ValidateRepoURL(args[0]); err != nil {
		return jobs.Request{}, err
	}
	preset, err := scanner.ParsePreset(options.Preset)
	if err != nil {
		return jobs.Request{}, err
	}

	if options.Server == "" {
		if cfg == nil {
			return jobs.Request{}, fmt.Errorf("the 'server' flag must be specified")
		}
		options.Server = defaultServer(cfg)
	}
	u, err := url.Parse(options.Server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return jobs.Request{}, fmt.Errorf("the 'server' flag must be an HTTP(S) URL, got %q", options.Server)
	}
	if options.Wait && options.PollInterval <= 0 {
		return jobs.Request{}, fmt.Errorf("the 'poll-interval' flag must be positive")
	}

	return jobs.Request{
		RepoURL:     args[0],
		GithubToken: options.Token,
		Preset:      string(preset),
		RunAIReport: !options.NoAIReport,
	}, nil
}
