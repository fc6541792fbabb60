package analyse

import (
	"fmt"

	"github.com/vulminator-io/vulminator/internal/github"
	"github.com/vulminator-io/vulminator/internal/jobs"
	"github.com/vulminator-io/vulminator/internal/scanner"
)

// validateAnalyseArgs validates the arguments provided to the analyse command and builds the run request.
func validateAnalyseArgs(options *RunOptionsAnalyse, args []string) (jobs.Request, error) {
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

	return jobs.Request{
		RepoURL:     args[0],
		GithubToken: options.Token,
		Preset:      string(preset),
		RunAIReport: !options.NoAIReport,
	}, nil
}
