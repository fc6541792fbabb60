package version

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vulminator-io/vulminator/internal/runner/runnertest"
	"github.com/vulminator-io/vulminator/pkg/shared/config"
)

func TestToolNames(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	assert.Equal(t, []string{"npm", "npx", "semgrep"}, toolNames(cfg))
	assert.Nil(t, toolNames(nil))
}

func TestResolveTools(t *testing.T) {
	fake := &runnertest.Fake{Missing: map[string]bool{"semgrep": true}}

	tools := resolveTools(fake, []string{"npm", "semgrep"})

	assert.Equal(t, map[string]string{
		"npm":     "/usr/bin/npm",
		"semgrep": "not found",
	}, tools)
}

func TestPrintVersionInfo(t *testing.T) {
	var out bytes.Buffer
	printVersionInfo(&out, &CoreVersions{
		Versions: Versions{Version: "1.2.0", GolangVersion: "go1.24.0", BuildTime: "2026-10-19T08:30:05Z"},
		Tools:    map[string]string{"semgrep": "/usr/bin/semgrep", "npm": "not found"},
	})

	want := `Core Version: v1.2.0
Tools:
  npm: not found
  semgrep: /usr/bin/semgrep
Go Version: go1.24.0
Build Time: 2026-10-19T08:30:05Z
`
	assert.Equal(t, want, out.String())
}
