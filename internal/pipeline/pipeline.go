package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/vulminator-io/vulminator/internal/audit"
	"github.com/vulminator-io/vulminator/internal/findings"
	"github.com/vulminator-io/vulminator/internal/jobs"
	"github.com/vulminator-io/vulminator/internal/publisher"
	"github.com/vulminator-io/vulminator/internal/refactor"
	"github.com/vulminator-io/vulminator/internal/scanner"
	"github.com/vulminator-io/vulminator/internal/upgrade"
	"github.com/vulminator-io/vulminator/internal/workspace"
	"github.com/vulminator-io/vulminator/pkg/shared/config"
	"github.com/vulminator-io/vulminator/pkg/shared/files"
)

const (
	messageSeparator = "; "
	upgradeSummary   = "Auto-installed latest version via npm install."
)

type Scanner interface {
	Scan(ctx context.Context, dir string, preset scanner.Preset) ([]findings.Finding, error)
}

type Auditor interface {
	Audit(ctx context.Context, root string) (*audit.Result, error)
}

type Upgrader interface {
	Apply(ctx context.Context, root string, plan upgrade.Plan) ([]upgrade.Action, error)
}

type Refactorer interface {
	Apply(ctx context.Context, root string, tasks []refactor.Task) []refactor.Result
}

type Reporter interface {
	Generate(ctx context.Context, fs []findings.Finding, assisted bool) (string, error)
	WriteSARIF(path string, fs []findings.Finding) error
}

// Dependencies are the stage implementations of a Pipeline.
type Dependencies struct {
	Cloner     workspace.Cloner
	Scanner    Scanner
	Auditor    Auditor
	Upgrader   Upgrader
	Refactorer Refactorer
	Reporter   Reporter
	Publisher  publisher.Publisher
}

// Pipeline runs the stages of one analysis strictly in order. Only a clone failure is fatal;
// every other stage failure becomes findings or a message and the run continues.
type Pipeline struct {
	cfg    *config.Config
	deps   Dependencies
	logger hclog.Logger
	now    func() time.Time
}

func New(cfg *config.Config, deps Dependencies, logger hclog.Logger) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		now:    time.Now,
	}
}

// state accumulates the ordered findings and the per-stage message trail of a run.
type state struct {
	findings []findings.Finding
	messages []string
}

func (s *state) add(fs ...findings.Finding) {
	s.findings = append(s.findings, fs...)
}

func (s *state) note(format string, args ...interface{}) {
	s.messages = append(s.messages, fmt.Sprintf(format, args...))
}

// Execute implements jobs.Executor.
func (p *Pipeline) Execute(ctx context.Context, runID string, req jobs.Request) (jobs.Result, error) {
	logger := p.logger.With("run_id", runID)

	ws, err := workspace.New(config.GetWorkspaceHome(p.cfg), runID, p.deps.Cloner, logger)
	if err != nil {
		return jobs.Result{}, err
	}
	repoDir, err := ws.Clone(ctx, req.RepoURL)
	if err != nil {
		return jobs.Result{}, err
	}
	defer ws.Cleanup()

	st := &state{}
	isolate(logger, st, "Static scan", func() { p.scan(ctx, logger, st, repoDir, req.Preset) })
	isolate(logger, st, "Dependency audit", func() { p.auditAndUpgrade(ctx, logger, st, repoDir) })
	isolate(logger, st, "Refactor worker", func() { p.refactor(ctx, logger, st, repoDir) })

	reportPath := filepath.ToSlash(config.ReportRelativePath(p.cfg, ".md"))
	var reportText string
	isolate(logger, st, "Report synthesis", func() { reportText = p.report(ctx, logger, st, repoDir, req.RunAIReport) })

	var prURL string
	isolate(logger, st, "Publication", func() { prURL = p.publish(ctx, logger, st, req, repoDir, reportPath, reportText) })

	return jobs.Result{
		Findings: st.findings,
		PRURL:    prURL,
		Message:  strings.Join(st.messages, messageSeparator),
	}, nil
}

func (p *Pipeline) scan(ctx context.Context, logger hclog.Logger, st *state, repoDir, rawPreset string) {
	preset, err := scanner.ParsePreset(rawPreset)
	if err != nil {
		logger.Warn("unknown preset, using fast", "preset", rawPreset)
		preset = scanner.PresetFast
	}

	found, err := p.deps.Scanner.Scan(ctx, repoDir, preset)
	if err != nil {
		logger.Error("static scan failed", "error", err)
		st.add(findings.New("Semgrep", findings.SeverityError, err.Error()))
		st.note("Semgrep failed")
		return
	}
	st.add(found...)
	st.note("Semgrep finished %d finding(s) at %s", len(found), p.now().UTC().Format(time.RFC3339))
}

func (p *Pipeline) auditAndUpgrade(ctx context.Context, logger hclog.Logger, st *state, repoDir string) {
	result, err := p.deps.Auditor.Audit(ctx, repoDir)
	if result == nil {
		result = &audit.Result{}
	}
	st.add(result.Findings...)
	if err != nil {
		logger.Error("dependency audit failed", "error", err)
		st.add(findings.New("Dependency audit", findings.SeverityError, err.Error()))
		st.note("Dependency audit failed")
	} else {
		st.note("Dependency audit returned %d finding(s)", len(result.Findings))
	}

	if len(result.Plan) == 0 {
		return
	}

	actions, err := p.deps.Upgrader.Apply(ctx, repoDir, result.Plan)
	for _, action := range actions {
		if action.Success {
			st.add(findings.NewForFile("Upgraded "+action.Package, findings.SeverityInfo, action.Manifest, upgradeSummary))
			continue
		}
		// a fail-fast abort is reported once below
		if err == nil {
			st.add(findings.NewForFile("Upgrade "+action.Package, findings.SeverityWarning, action.Manifest, "Upgrade failed: "+action.Message))
		}
	}

	if err != nil {
		logger.Error("dependency upgrade failed", "error", err)
		st.add(findings.New("Dependency upgrade", findings.SeverityError, err.Error()))
		st.note("Dependency upgrade step failed")
		return
	}
	st.note("Upgraded %d dependency package(s) automatically", countSucceeded(actions))
}

func (p *Pipeline) refactor(ctx context.Context, logger hclog.Logger, st *state, repoDir string) {
	tasks := refactor.BuildQueue(repoDir, st.findings, p.cfg.Refactor, logger)
	if len(tasks) == 0 {
		st.note("No files qualified for refactor queue")
		return
	}

	results := p.deps.Refactorer.Apply(ctx, repoDir, tasks)
	applied := 0
	for _, r := range results {
		if r.Applied {
			applied++
		}
	}
	if applied > 0 {
		st.note("Applied %d refactor comment(s)", applied)
	}
	if skipped := len(results) - applied; skipped > 0 {
		st.note("Skipped %d refactor target(s)", skipped)
	}

	for _, r := range results {
		severity := findings.SeverityWarning
		if r.Applied {
			severity = findings.SeverityInfo
		}
		st.add(findings.NewForFile("Refactor "+r.Task.FilePath, severity, r.Task.FilePath, r.Message))
	}
}

func (p *Pipeline) report(ctx context.Context, logger hclog.Logger, st *state, repoDir string, assisted bool) string {
	text, err := p.deps.Reporter.Generate(ctx, st.findings, assisted)
	if err != nil {
		st.note("Report generation failed; using fallback text")
	} else {
		st.note("Generated Markdown report")
	}

	rel := config.ReportRelativePath(p.cfg, ".md")
	if err := files.WriteFile(filepath.Join(repoDir, rel), []byte(text)); err != nil {
		logger.Error("unable to write report", "path", rel, "error", err)
		st.note("Report write failed: %v", err)
	}

	if config.GetBoolValue(p.cfg.Report, "SARIF", true) {
		sarifRel := config.ReportRelativePath(p.cfg, ".sarif")
		if err := p.deps.Reporter.WriteSARIF(filepath.Join(repoDir, sarifRel), st.findings); err != nil {
			logger.Error("unable to write sarif report", "path", sarifRel, "error", err)
			st.note("SARIF export failed: %v", err)
		}
	}
	return text
}

func (p *Pipeline) publish(ctx context.Context, logger hclog.Logger, st *state, req jobs.Request, repoDir, reportPath, reportText string) string {
	token := strings.TrimSpace(req.GithubToken)
	if token == "" {
		token = strings.TrimSpace(p.cfg.Publisher.GithubToken)
	}
	if config.IsPlaceholderToken(p.cfg, token) || p.deps.Publisher == nil {
		st.note("Skipped PR (no GitHub token provided)")
		return ""
	}

	url, err := p.deps.Publisher.Publish(ctx, publisher.Request{
		RepoDir:      repoDir,
		RepoURL:      req.RepoURL,
		Token:        token,
		ReportPath:   reportPath,
		ReportText:   reportText,
		FindingCount: len(st.findings),
	})
	if err != nil {
		logger.Error("publication failed", "error", err)
		st.note("Pull request failed: %v", err)
		return ""
	}
	if url != "" {
		st.note("Opened pull request")
	}
	return url
}

// isolate runs one stage and turns a panic into a message so later stages still run.
func isolate(logger hclog.Logger, st *state, stage string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("stage panicked", "stage", stage, "panic", r)
			st.note("%s failed: %v", stage, r)
		}
	}()
	fn()
}

func countSucceeded(actions []upgrade.Action) int {
	n := 0
	for _, a := range actions {
		if a.Success {
			n++
		}
	}
	return n
}
