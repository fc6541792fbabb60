package sarif

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	gosarif "github.com/owenrumney/go-sarif/v2/sarif"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulminator-io/vulminator/internal/findings"
)

func sample() []findings.Finding {
	return []findings.Finding{
		findings.New("Semgrep", findings.SeverityInfo, "Semgrep completed with no findings for the selected preset."),
		findings.NewForFile("lodash (critical)", findings.SeverityCritical, "package-lock.json", "Prototype Pollution"),
		findings.NewForFile("Refactor src/app.js", findings.SeverityWarning, "src/app.js", "Verification failed"),
		findings.NewForFile("lodash (critical)", findings.SeverityCritical, "web/package-lock.json", "Prototype Pollution"),
		findings.New("odd", findings.Severity("low"), "unmapped"),
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		severity findings.Severity
		want     string
	}{
		{findings.SeverityCritical, LevelError},
		{findings.SeverityHigh, LevelError},
		{findings.SeverityError, LevelError},
		{findings.SeverityModerate, LevelWarning},
		{findings.SeverityWarning, LevelWarning},
		{findings.SeverityInfo, LevelNote},
		{findings.Severity("low"), LevelNone},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			assert.Equal(t, tt.want, LevelFor(tt.severity))
		})
	}
}

func TestFromFindings(t *testing.T) {
	report, err := FromFindings(hclog.NewNullLogger(), sample())
	require.NoError(t, err)

	require.Len(t, report.Runs, 1)
	run := report.Runs[0]
	assert.Equal(t, ToolName, run.Tool.Driver.Name)
	assert.Len(t, run.Tool.Driver.Rules, 4, "one rule per distinct title")
	require.Len(t, run.Results, 5)

	second := run.Results[1]
	assert.Equal(t, "lodash (critical)", *second.RuleID)
	assert.Equal(t, LevelError, *second.Level)
	assert.Equal(t, "Prototype Pollution", *second.Message.Text)
	assert.Equal(t, "critical", second.Properties["Severity"])
	require.Len(t, second.Locations, 1)
	assert.Equal(t, "package-lock.json", *second.Locations[0].PhysicalLocation.ArtifactLocation.URI)

	assert.Empty(t, run.Results[0].Locations)

	assert.Equal(t, map[string]int{
		LevelError:   2,
		LevelWarning: 1,
		LevelNote:    1,
		LevelNone:    1,
		"total":      5,
	}, report.CollectSeverityInfo())
}

func TestSortResultsByLevel(t *testing.T) {
	report, err := FromFindings(hclog.NewNullLogger(), sample())
	require.NoError(t, err)

	report.SortResultsByLevel()

	var order []string
	for _, result := range report.Runs[0].Results {
		order = append(order, firstURI(result))
	}
	assert.Equal(t, []string{"package-lock.json", "web/package-lock.json", "src/app.js", "", ""}, order)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "VulminatorReport.sarif")
	report, err := FromFindings(hclog.NewNullLogger(), sample())
	require.NoError(t, err)

	require.NoError(t, report.WriteFile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	parsed, err := gosarif.FromBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, "2.1.0", parsed.Version)
	assert.Len(t, parsed.Runs[0].Results, 5)
}

func firstURI(result *gosarif.Result) string {
	if len(result.Locations) == 0 {
		return ""
	}
	return *result.Locations[0].PhysicalLocation.ArtifactLocation.URI
}
