package analyse

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulminator-io/vulminator/internal/jobs"
)

func TestValidateAnalyseArgs(t *testing.T) {
	tests := []struct {
		name    string
		options RunOptionsAnalyse
		args    []string
		want    jobs.Request
		wantErr string
	}{
		{
			// valid: vulminator analyse https://github.com/acme/shop
			name: "Valid repository URL with defaults",
			args: []string{"https://github.com/acme/shop"},
			want: jobs.Request{
				RepoURL:     "https://github.com/acme/shop",
				Preset:      "fast",
				RunAIReport: true,
			},
		},
		{
			// valid: vulminator analyse -p exhaustive --token t --no-ai-report https://github.com/acme/shop
			name:    "Valid repository URL with flags",
			options: RunOptionsAnalyse{Preset: "Exhaustive", Token: "ghp_test", NoAIReport: true},
			args:    []string{"https://github.com/acme/shop"},
			want: jobs.Request{
				RepoURL:     "https://github.com/acme/shop",
				GithubToken: "ghp_test",
				Preset:      "exhaustive",
			},
		},
		{
			name:    "No repository URL",
			wantErr: "exactly one repository URL must be specified, got 0",
		},
		{
			name:    "Several repository URLs",
			args:    []string{"https://github.com/acme/shop", "https://github.com/acme/api"},
			wantErr: "exactly one repository URL must be specified, got 2",
		},
		{
			name:    "Plain HTTP repository URL",
			args:    []string{"http://github.com/acme/shop"},
			wantErr: `repo_url must be an HTTPS URL, got "http://github.com/acme/shop"`,
		},
		{
			name:    "Unknown preset",
			options: RunOptionsAnalyse{Preset: "paranoid"},
			args:    []string{"https://github.com/acme/shop"},
			wantErr: `unknown preset "paranoid": expected fast, balanced or exhaustive`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := validateAnalyseArgs(&tt.options, tt.args)
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, req)
		})
	}
}

func TestWriteRun(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	outputPath := filepath.Join(t.TempDir(), "results", "run.json")

	run := jobs.Run{ID: "run-1", Status: jobs.StatusCompleted, Message: "Semgrep failed"}
	require.NoError(t, writeRun(cmd, run, outputPath))

	saved, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Equal(t, string(saved)+"\n", out.String())
	assert.Contains(t, out.String(), `"run_id": "run-1"`)
	assert.Contains(t, out.String(), `"status": "completed"`)
	assert.NotContains(t, out.String(), "pr_url")
}
