package version

import (
	"fmt"
	"io"
	"sort"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/vulminator-io/vulminator/internal/runner"
	"github.com/vulminator-io/vulminator/pkg/shared/config"
)

var (
	AppConfig     *config.Config
	CoreVersion   = "unknown"
	GolangVersion = "unknown"
	BuildTime     = "unknown"
)

// Versions holds version information for the core application.
type Versions struct {
	Version       string `json:"version"`
	GolangVersion string `json:"golang_version"`
	BuildTime     string `json:"build_time"`
}

// CoreVersions holds the core versions and the resolved external tools.
type CoreVersions struct {
	Versions Versions          `json:"versions"`
	Tools    map[string]string `json:"tools"`
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// NewVersionCmd creates a new cobra.Command for the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "version",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Print the version number of the application and the external tools it uses",
		Run: func(cmd *cobra.Command, args []string) {
			version := CoreVersions{
				Versions: Versions{
					Version:       CoreVersion,
					GolangVersion: GolangVersion,
					BuildTime:     BuildTime,
				},
				Tools: resolveTools(runner.New(hclog.NewNullLogger(), 0), toolNames(AppConfig)),
			}
			printVersionInfo(cmd.OutOrStdout(), &version)
		},
	}
}

// toolNames lists the binaries a run may invoke.
func toolNames(cfg *config.Config) []string {
	if cfg == nil {
		return nil
	}
	names := map[string]struct{}{
		cfg.Scanner.Binary: {},
		cfg.Audit.Binary:   {},
	}
	for _, command := range cfg.Refactor.VerifyCommands {
		if len(command) > 0 {
			names[command[0]] = struct{}{}
		}
	}
	delete(names, "")

	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// resolveTools maps each tool to its path on PATH, or "not found".
func resolveTools(r runner.Runner, names []string) map[string]string {
	tools := make(map[string]string, len(names))
	for _, name := range names {
		path, err := r.LookPath(name)
		if err != nil {
			path = "not found"
		}
		tools[name] = path
	}
	return tools
}

// printVersionInfo prints the version information for the core application and tools.
func printVersionInfo(w io.Writer, versions *CoreVersions) {
	fmt.Fprintf(w, "Core Version: v%s\n", versions.Versions.Version)
	fmt.Fprintln(w, "Tools:")
	names := make([]string, 0, len(versions.Tools))
	for name := range versions.Tools {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %s\n", name, versions.Tools[name])
	}
	fmt.Fprintf(w, "Go Version: %s\n", versions.Versions.GolangVersion)
	fmt.Fprintf(w, "Build Time: %s\n", versions.Versions.BuildTime)
}
