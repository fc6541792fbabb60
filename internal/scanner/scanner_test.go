package scanner

import (
	"context"
	"errors"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulminator-io/vulminator/internal/findings"
	"github.com/vulminator-io/vulminator/internal/runner"
	"github.com/vulminator-io/vulminator/internal/runner/runnertest"
	"github.com/vulminator-io/vulminator/pkg/shared/config"
)

func testConfig() config.Scanner {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg.Scanner
}

const twoResults = `{"results":[
 {"check_id":"javascript.express.xss","path":"src/app.js","extra":{"severity":"ERROR","message":"User input reaches res.send"}},
 {"check_id":"generic.secrets","path":"config/keys.txt","extra":{"severity":"WARNING","message":""}}
]}`

func TestSemgrepScan(t *testing.T) {
	tests := []struct {
		name     string
		preset   Preset
		result   runner.Result
		ruleset  string
		expected []findings.Finding
		wantErr  string
	}{
		{
			name:    "results become findings",
			preset:  PresetBalanced,
			result:  runner.Result{ExitCode: 1, Stdout: twoResults},
			ruleset: "p/security-audit",
			expected: []findings.Finding{
				findings.NewForFile("javascript.express.xss", findings.SeverityError, "src/app.js", "User input reaches res.send"),
				findings.NewForFile("generic.secrets", findings.SeverityWarning, "config/keys.txt", "No description provided."),
			},
		},
		{
			name:    "no results gives one info finding",
			preset:  PresetFast,
			result:  runner.Result{Stdout: `{"results":[]}`},
			ruleset: "p/ci",
			expected: []findings.Finding{
				findings.New("Semgrep", findings.SeverityInfo, "Semgrep completed with no findings for the selected preset."),
			},
		},
		{
			name:    "unexpected exit code",
			preset:  PresetExhaustive,
			result:  runner.Result{ExitCode: 2, Stderr: "invalid config\n"},
			ruleset: "p/owasp-top-ten",
			wantErr: "Semgrep failed with code 2: invalid config",
		},
		{
			name:    "malformed output",
			preset:  PresetFast,
			result:  runner.Result{Stdout: "not json"},
			ruleset: "p/ci",
			wantErr: "Failed to parse Semgrep JSON output",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &runnertest.Fake{Handler: func(runnertest.Call) (runner.Result, error) { return tt.result, nil }}
			s := NewSemgrep(fake, testConfig(), hclog.NewNullLogger())

			got, err := s.Scan(context.Background(), "/repo", tt.preset)

			calls := fake.CallsTo("semgrep")
			require.Len(t, calls, 1)
			assert.Equal(t, "semgrep --config "+tt.ruleset+" --json --quiet", calls[0].Line())
			assert.Equal(t, "/repo", calls[0].Dir)

			if tt.wantErr != "" {
				var scanErr *Error
				require.True(t, errors.As(err, &scanErr))
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSemgrepMissingTool(t *testing.T) {
	fake := &runnertest.Fake{Missing: map[string]bool{"semgrep": true}}
	s := NewSemgrep(fake, testConfig(), hclog.NewNullLogger())

	_, err := s.Scan(context.Background(), "/repo", PresetFast)

	var scanErr *Error
	require.True(t, errors.As(err, &scanErr))
	assert.Contains(t, err.Error(), "Semgrep CLI not found")
	assert.Empty(t, fake.Calls())
}

func TestParsePreset(t *testing.T) {
	p, err := ParsePreset("")
	require.NoError(t, err)
	assert.Equal(t, PresetFast, p)

	p, err = ParsePreset("Exhaustive")
	require.NoError(t, err)
	assert.Equal(t, PresetExhaustive, p)

	_, err = ParsePreset("paranoid")
	assert.Error(t, err)
}
