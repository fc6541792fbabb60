package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/vulminator-io/vulminator/internal/findings"
	"github.com/vulminator-io/vulminator/internal/runner"
	"github.com/vulminator-io/vulminator/pkg/shared/config"
)

// Preset names a rule-set tier.
type Preset string

const (
	PresetFast       Preset = "fast"
	PresetBalanced   Preset = "balanced"
	PresetExhaustive Preset = "exhaustive"
)

// ParsePreset validates a preset name. An empty name selects fast.
func ParsePreset(name string) (Preset, error) {
	switch p := Preset(strings.ToLower(strings.TrimSpace(name))); p {
	case "":
		return PresetFast, nil
	case PresetFast, PresetBalanced, PresetExhaustive:
		return p, nil
	default:
		return "", fmt.Errorf("unknown preset %q: expected fast, balanced or exhaustive", name)
	}
}

// Error is returned when the static analyzer is missing, fails, or emits unreadable output.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

type semgrepOutput struct {
	Results []semgrepResult `json:"results"`
}

type semgrepResult struct {
	CheckID string `json:"check_id"`
	Path    string `json:"path"`
	Extra   struct {
		Severity string `json:"severity"`
		Message  string `json:"message"`
	} `json:"extra"`
}

// Semgrep runs the semgrep CLI against a clone.
type Semgrep struct {
	runner runner.Runner
	cfg    config.Scanner
	logger hclog.Logger
}

// NewSemgrep creates a Semgrep scanner.
func NewSemgrep(r runner.Runner, cfg config.Scanner, logger hclog.Logger) *Semgrep {
	return &Semgrep{
		runner: r,
		cfg:    cfg,
		logger: logger,
	}
}

// RuleSet returns the configured rule set for preset, falling back to the fast tier.
func (s *Semgrep) RuleSet(preset Preset) string {
	if rs, ok := s.cfg.Presets[string(preset)]; ok && rs != "" {
		return rs
	}
	return s.cfg.Presets[string(PresetFast)]
}

// Scan runs the analyzer in dir and converts every result into a Finding.
// When nothing is reported a single informational Finding is returned.
func (s *Semgrep) Scan(ctx context.Context, dir string, preset Preset) ([]findings.Finding, error) {
	binary := config.SetThen(s.cfg.Binary, "semgrep")
	if _, err := s.runner.LookPath(binary); err != nil {
		return nil, &Error{Message: "Semgrep CLI not found. Install it via pip (pip install semgrep) or brew (brew install semgrep)", Err: err}
	}

	args := append([]string{"--config", s.RuleSet(preset), "--json", "--quiet"}, s.cfg.AdditionalArgs...)
	s.logger.Info("running semgrep", "preset", preset, "ruleset", s.RuleSet(preset))

	res, err := s.runner.Run(ctx, dir, binary, args...)
	if err != nil {
		return nil, &Error{Message: "Semgrep could not be executed", Err: err}
	}
	// 0 = clean, 1 = findings reported
	if res.ExitCode != 0 && res.ExitCode != 1 {
		return nil, &Error{Message: fmt.Sprintf("Semgrep failed with code %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))}
	}

	return parseOutput(res.Stdout)
}

func parseOutput(stdout string) ([]findings.Finding, error) {
	var out semgrepOutput
	if strings.TrimSpace(stdout) != "" {
		if err := json.Unmarshal([]byte(stdout), &out); err != nil {
			return nil, &Error{Message: "Failed to parse Semgrep JSON output", Err: err}
		}
	}

	result := make([]findings.Finding, 0, len(out.Results))
	for _, r := range out.Results {
		title := config.SetThen(r.CheckID, "semgrep finding")
		summary := config.SetThen(r.Extra.Message, "No description provided.")
		result = append(result, findings.NewForFile(title, findings.ParseSeverity(r.Extra.Severity), r.Path, summary))
	}

	if len(result) == 0 {
		result = append(result, findings.New("Semgrep", findings.SeverityInfo, "Semgrep completed with no findings for the selected preset."))
	}
	return result, nil
}
