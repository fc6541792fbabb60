package sarif

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/hashicorp/go-hclog"
	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/vulminator-io/vulminator/internal/findings"
	"github.com/vulminator-io/vulminator/pkg/shared/files"
)

const (
	ToolName       = "Vulminator"
	InformationURI = "https://github.com/vulminator-io/vulminator"
)

// SARIF result levels.
const (
	LevelError   = "error"
	LevelWarning = "warning"
	LevelNote    = "note"
	LevelNone    = "none"
)

var levelOrder = map[string]int{
	LevelError:   0,
	LevelWarning: 1,
	LevelNote:    2,
	LevelNone:    3,
}

type Report struct {
	*sarif.Report
	logger hclog.Logger
}

// LevelFor maps a finding severity onto a SARIF result level.
func LevelFor(severity findings.Severity) string {
	switch severity {
	case findings.SeverityCritical, findings.SeverityHigh, findings.SeverityError:
		return LevelError
	case findings.SeverityModerate, findings.SeverityWarning:
		return LevelWarning
	case findings.SeverityInfo:
		return LevelNote
	default:
		return LevelNone
	}
}

// FromFindings builds a single-run SARIF 2.1.0 report with one rule per distinct finding title.
func FromFindings(logger hclog.Logger, fs []findings.Finding) (*Report, error) {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("failed to create sarif report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(ToolName, InformationURI)
	for _, f := range fs {
		rule := run.AddRule(f.Title)
		if rule.ShortDescription == nil {
			rule.WithShortDescription(sarif.NewMultiformatMessageString(f.Title))
		}

		result := run.CreateResultForRule(f.Title).
			WithLevel(LevelFor(f.Severity)).
			WithMessage(sarif.NewTextMessage(f.Summary))
		if result.Properties == nil {
			result.Properties = make(sarif.Properties)
		}
		// keep the tool vocabulary, the SARIF level is lossy
		result.Properties["Severity"] = string(f.Severity)

		if path := f.Path(); path != "" {
			result.AddLocation(sarif.NewLocationWithPhysicalLocation(
				sarif.NewPhysicalLocation().WithArtifactLocation(sarif.NewSimpleArtifactLocation(path)),
			))
		}
	}
	report.AddRun(run)

	return &Report{Report: report, logger: logger}, nil
}

// CollectSeverityInfo counts results per SARIF level and in total.
func (r Report) CollectSeverityInfo() map[string]int {
	severityInfo := map[string]int{
		LevelError:   0,
		LevelWarning: 0,
		LevelNote:    0,
		LevelNone:    0,
		"total":      0,
	}

	for _, run := range r.Runs {
		for _, result := range run.Results {
			severityInfo[resultLevel(result)]++
			severityInfo["total"]++
		}
	}
	return severityInfo
}

// SortResultsByLevel orders results error, warning, note, none and keeps the input order within a level.
func (r Report) SortResultsByLevel() {
	for _, run := range r.Runs {
		sort.SliceStable(run.Results, func(i, j int) bool {
			return levelOrder[resultLevel(run.Results[i])] < levelOrder[resultLevel(run.Results[j])]
		})
	}
}

// WriteFile writes the indented report to path, creating parent folders.
func (r Report) WriteFile(path string) error {
	var buf bytes.Buffer
	if err := r.PrettyWrite(&buf); err != nil {
		return fmt.Errorf("failed to encode sarif report: %w", err)
	}
	if err := files.WriteFile(path, buf.Bytes()); err != nil {
		return err
	}

	r.logger.Debug("sarif report written", "path", path, "severities", r.CollectSeverityInfo())
	return nil
}

func resultLevel(result *sarif.Result) string {
	if result.Level == nil {
		return LevelNone
	}
	if _, ok := levelOrder[*result.Level]; !ok {
		return LevelNone
	}
	return *result.Level
}
