// Package app wires the analysis components into a run service shared by the CLI commands.
package app

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/vulminator-io/vulminator/internal/audit"
	"github.com/vulminator-io/vulminator/internal/git"
	"github.com/vulminator-io/vulminator/internal/jobs"
	"github.com/vulminator-io/vulminator/internal/llm"
	"github.com/vulminator-io/vulminator/internal/pipeline"
	"github.com/vulminator-io/vulminator/internal/publisher"
	"github.com/vulminator-io/vulminator/internal/refactor"
	"github.com/vulminator-io/vulminator/internal/report"
	"github.com/vulminator-io/vulminator/internal/runner"
	"github.com/vulminator-io/vulminator/internal/scanner"
	"github.com/vulminator-io/vulminator/internal/upgrade"
	"github.com/vulminator-io/vulminator/pkg/shared/config"
	"github.com/vulminator-io/vulminator/pkg/shared/httpclient"
)

// NewPipeline builds a pipeline backed by the external tools and services named in cfg.
func NewPipeline(cfg *config.Config, logger hclog.Logger) (*pipeline.Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is nil")
	}

	r := runner.New(logger.Named("runner"), cfg.Vulminator.ToolTimeout)
	gitClient := git.New(logger.Named("git"), cfg)

	writer, err := newReportWriter(cfg, logger)
	if err != nil {
		return nil, err
	}

	continueOnFailure := config.GetBoolValue(cfg.Audit, "ContinueOnUpgradeFailure", false)
	deps := pipeline.Dependencies{
		Cloner:     gitClient,
		Scanner:    scanner.NewSemgrep(r, cfg.Scanner, logger.Named("semgrep")),
		Auditor:    audit.NewAuditor(r, cfg.Audit, logger.Named("audit")),
		Upgrader:   upgrade.NewExecutor(r, cfg.Audit.Binary, continueOnFailure, logger.Named("upgrade")),
		Refactorer: refactor.NewExecutor(r, cfg.Refactor, logger.Named("refactor")),
		Reporter:   report.NewSynthesizer(writer, logger.Named("report")),
		Publisher:  publisher.New(cfg.Publisher, gitClient, publisher.GitHubHosting(logger.Named("github"), cfg), logger.Named("publisher")),
	}
	return pipeline.New(cfg, deps, logger.Named("pipeline")), nil
}

// NewService builds the run service on top of NewPipeline.
func NewService(cfg *config.Config, logger hclog.Logger) (*jobs.Service, error) {
	p, err := NewPipeline(cfg, logger)
	if err != nil {
		return nil, err
	}
	return jobs.NewService(jobs.NewRegistry(), p, cfg.Vulminator.MaxConcurrentJobs, logger.Named("jobs")), nil
}

// newReportWriter returns the model used for assisted reports. Missing credentials are not an
// error: reports then fall back to the plain findings listing.
func newReportWriter(cfg *config.Config, logger hclog.Logger) (report.Writer, error) {
	model, err := llm.NewModel(cfg.Report, httpclient.StandardClient(logger.Named("http"), cfg))
	if errors.Is(err, llm.ErrMissingCredentials) {
		logger.Warn("report model is not configured, reports will use the fallback listing", "provider", cfg.Report.Provider)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create report model: %w", err)
	}
	logger.Debug("report model configured", "model", model.Model())
	return model, nil
}
