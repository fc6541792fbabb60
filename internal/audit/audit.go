package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/vulminator-io/vulminator/internal/findings"
	"github.com/vulminator-io/vulminator/internal/runner"
	"github.com/vulminator-io/vulminator/internal/upgrade"
	"github.com/vulminator-io/vulminator/pkg/shared/config"
)

const findingTitle = "Dependency audit"

// Error is returned when the audit tool is missing, fails, or emits unreadable output for a lockfile.
type Error struct {
	Lockfile string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Lockfile != "" {
		msg = fmt.Sprintf("%s for %s", msg, e.Lockfile)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Result collects the findings and upgrade plan of an audit.
type Result struct {
	Findings  []findings.Finding
	Lockfiles []string
	Plan      upgrade.Plan
}

type auditOutput struct {
	Vulnerabilities map[string]vulnerability `json:"vulnerabilities"`
}

type vulnerability struct {
	Severity string            `json:"severity"`
	Range    string            `json:"range"`
	Via      []json.RawMessage `json:"via"`
}

type advisory struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// UnmarshalJSON accepts `via` as either a list or a single advisory object.
func (v *vulnerability) UnmarshalJSON(data []byte) error {
	var raw struct {
		Severity string          `json:"severity"`
		Range    string          `json:"range"`
		Via      json.RawMessage `json:"via"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v.Severity, v.Range = raw.Severity, raw.Range

	via := strings.TrimSpace(string(raw.Via))
	switch {
	case via == "" || via == "null":
	case strings.HasPrefix(via, "["):
		return json.Unmarshal(raw.Via, &v.Via)
	default:
		v.Via = []json.RawMessage{raw.Via}
	}
	return nil
}

// firstAdvisory returns the first object entry of via. String entries name other vulnerable packages.
func (v vulnerability) firstAdvisory() *advisory {
	for _, item := range v.Via {
		if !strings.HasPrefix(strings.TrimSpace(string(item)), "{") {
			continue
		}
		var a advisory
		if err := json.Unmarshal(item, &a); err == nil {
			return &a
		}
	}
	return nil
}

// Auditor runs npm audit for every lockfile in a clone.
type Auditor struct {
	runner runner.Runner
	cfg    config.Audit
	logger hclog.Logger
}

// NewAuditor creates an Auditor.
func NewAuditor(r runner.Runner, cfg config.Audit, logger hclog.Logger) *Auditor {
	return &Auditor{
		runner: r,
		cfg:    cfg,
		logger: logger,
	}
}

// FindLockfiles returns the paths, relative to root and in lexical order, of every file named name.
// Folders named in skip are not descended into.
func FindLockfiles(root, name string, skip []string) ([]string, error) {
	var lockfiles []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && contains(skip, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != name || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		lockfiles = append(lockfiles, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search lockfiles: %w", err)
	}
	sort.Strings(lockfiles)
	return lockfiles, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Audit audits every lockfile under root. On failure the returned Result still holds everything
// gathered from lockfiles audited before the failing one.
func (a *Auditor) Audit(ctx context.Context, root string) (*Result, error) {
	lockfileName := config.SetThen(a.cfg.Lockfile, "package-lock.json")
	lockfiles, err := FindLockfiles(root, lockfileName, a.cfg.SkipDirs)
	if err != nil {
		return &Result{}, &Error{Message: "Unable to search for npm lockfiles", Err: err}
	}

	result := &Result{Lockfiles: lockfiles}
	if len(lockfiles) == 0 {
		result.Findings = append(result.Findings, findings.New(findingTitle, findings.SeverityInfo, "No npm lockfiles found; skipped npm audit."))
		return result, nil
	}

	binary := config.SetThen(a.cfg.Binary, "npm")
	if _, err := a.runner.LookPath(binary); err != nil {
		return result, &Error{Message: "npm CLI not found. Install Node.js/npm to enable dependency audits", Err: err}
	}

	planner := upgrade.NewPlanner(a.cfg.UpgradeSeverities)
	for _, lockfile := range lockfiles {
		found, err := a.auditLockfile(ctx, root, binary, lockfile, planner)
		if err != nil {
			result.Plan = planner.Plan()
			return result, err
		}
		result.Findings = append(result.Findings, found...)
	}
	result.Plan = planner.Plan()

	if len(result.Findings) == 0 {
		result.Findings = append(result.Findings, findings.New(findingTitle, findings.SeverityInfo, "npm audit reported no vulnerabilities."))
	}
	return result, nil
}

func (a *Auditor) auditLockfile(ctx context.Context, root, binary, lockfile string, planner *upgrade.Planner) ([]findings.Finding, error) {
	dir := filepath.Join(root, filepath.Dir(filepath.FromSlash(lockfile)))
	a.logger.Debug("running npm audit", "lockfile", lockfile)

	res, err := a.runner.Run(ctx, dir, binary, "audit", "--json", "--package-lock-only")
	if err != nil {
		return nil, &Error{Lockfile: lockfile, Message: "npm audit could not be executed", Err: err}
	}
	// npm audit exits 1 when vulnerabilities are present
	if res.ExitCode != 0 && res.ExitCode != 1 {
		return nil, &Error{Lockfile: lockfile, Message: fmt.Sprintf("npm audit failed (code %d): %s", res.ExitCode, strings.TrimSpace(res.Stderr))}
	}

	var out auditOutput
	if strings.TrimSpace(res.Stdout) != "" {
		if err := json.Unmarshal([]byte(res.Stdout), &out); err != nil {
			return nil, &Error{Lockfile: lockfile, Message: "Unable to parse npm audit output", Err: err}
		}
	}

	names := make([]string, 0, len(out.Vulnerabilities))
	for name := range out.Vulnerabilities {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]findings.Finding, 0, len(names))
	for _, name := range names {
		vuln := out.Vulnerabilities[name]
		severity := findings.ParseSeverity(vuln.Severity)

		title, url := name+" vulnerability", ""
		if adv := vuln.firstAdvisory(); adv != nil {
			title, url = adv.Title, adv.URL
		}
		parts := []string{title}
		if vuln.Range != "" {
			parts = append(parts, "Affected versions: "+vuln.Range)
		}
		if url != "" {
			parts = append(parts, url)
		}

		result = append(result, findings.NewForFile(fmt.Sprintf("%s (%s)", name, severity), severity, lockfile, strings.Join(parts, " - ")))
		planner.Add(lockfile, name, severity)
	}
	return result, nil
}
