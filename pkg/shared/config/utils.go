package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Default values applied when neither YAML nor environment provide a setting.
const (
	DefaultMaxConcurrentJobs = 4
	DefaultToolTimeout       = 15 * time.Minute
	DefaultServerHost        = "127.0.0.1"
	DefaultServerPort        = 8000
	DefaultReportName        = "VulminatorReport"
	DefaultReportFolder      = "reports"
	DefaultBranchPrefix      = "vulminator"
	DefaultRemoteName        = "vulminator-fork"
	DefaultExcerptLines      = 40
	DefaultRefactorMaxTasks  = 8
	DefaultSnippetSize       = 1500
)

// GetBoolValue retrieves a boolean value from a nested struct based on a dot-separated path.
// It returns the provided defaultValue if the specified field is not explicitly set or is nil.
func GetBoolValue(config interface{}, fieldPath string, defaultValue bool) bool {
	if config == nil {
		return defaultValue
	}

	fields := strings.Split(fieldPath, ".")
	val := reflect.ValueOf(config)

	for _, field := range fields {
		if val.Kind() == reflect.Ptr {
			if val.IsNil() {
				return defaultValue
			}
			val = val.Elem()
		}

		val = val.FieldByName(field)
		if !val.IsValid() {
			return defaultValue
		}
	}

	if val.Kind() == reflect.Ptr && !val.IsNil() {
		return val.Elem().Bool()
	} else if val.Kind() == reflect.Bool {
		return val.Bool()
	}

	return defaultValue
}

// SetThen provides a utility to select the first value if set, otherwise defaults.
func SetThen[T any](value T, defaultValue T) T {
	if reflect.ValueOf(&value).Elem().IsZero() {
		return defaultValue
	}
	return value
}

// ApplyEnv overrides configuration values from environment variables, if they are set.
func ApplyEnv(cfg *Config) {
	envVars := map[string]*string{
		"VULMINATOR_HOME":         &cfg.Vulminator.HomeFolder,
		"VULMINATOR_WORKSPACE":    &cfg.Vulminator.WorkspaceFolder,
		"VULMINATOR_GITHUB_TOKEN": &cfg.Publisher.GithubToken,
		"VULMINATOR_GITHUB_API":   &cfg.Publisher.APIURL,
		"OPENAI_MODEL":            &cfg.Report.Model,
	}
	for env, val := range envVars {
		if v := os.Getenv(env); v != "" {
			*val = v
		}
	}

	for _, env := range []string{"MAX_JOBS", "VULMINATOR_MAX_JOBS"} {
		if v := os.Getenv(env); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				cfg.Vulminator.MaxConcurrentJobs = n
			}
		}
	}

	if cfg.Report.APIKey == "" {
		cfg.Report.APIKey = providerAPIKey(cfg.Report.Provider)
	}
}

// providerAPIKey returns the conventional credential variable for a report provider.
func providerAPIKey(provider string) string {
	switch strings.ToLower(provider) {
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "ollama":
		return ""
	default:
		return os.Getenv("OPENAI_API_KEY")
	}
}

// ApplyDefaults fills every unset field with its built-in default.
func ApplyDefaults(cfg *Config) {
	cfg.Vulminator.MaxConcurrentJobs = SetThen(cfg.Vulminator.MaxConcurrentJobs, DefaultMaxConcurrentJobs)
	cfg.Vulminator.ToolTimeout = SetThen(cfg.Vulminator.ToolTimeout, DefaultToolTimeout)

	cfg.Server.Host = SetThen(cfg.Server.Host, DefaultServerHost)
	cfg.Server.Port = SetThen(cfg.Server.Port, DefaultServerPort)

	cfg.GitClient.Depth = SetThen(cfg.GitClient.Depth, 1)
	cfg.GitClient.Timeout = SetThen(cfg.GitClient.Timeout, 10*time.Minute)

	cfg.Scanner.Binary = SetThen(cfg.Scanner.Binary, "semgrep")
	if len(cfg.Scanner.Presets) == 0 {
		cfg.Scanner.Presets = map[string]string{
			"fast":       "p/ci",
			"balanced":   "p/security-audit",
			"exhaustive": "p/owasp-top-ten",
		}
	}

	cfg.Audit.Binary = SetThen(cfg.Audit.Binary, "npm")
	cfg.Audit.Lockfile = SetThen(cfg.Audit.Lockfile, "package-lock.json")
	cfg.Audit.UpgradeSeverities = SetThen(cfg.Audit.UpgradeSeverities, []string{"high", "critical"})
	cfg.Audit.SkipDirs = SetThen(cfg.Audit.SkipDirs, []string{".git", "node_modules"})

	cfg.Refactor.MaxTasks = SetThen(cfg.Refactor.MaxTasks, DefaultRefactorMaxTasks)
	cfg.Refactor.SnippetSize = SetThen(cfg.Refactor.SnippetSize, DefaultSnippetSize)
	cfg.Refactor.Severities = SetThen(cfg.Refactor.Severities, []string{"critical", "high", "moderate"})
	if len(cfg.Refactor.CommentPrefixes) == 0 {
		cfg.Refactor.CommentPrefixes = map[string]string{
			".js":   "//",
			".jsx":  "//",
			".ts":   "//",
			".tsx":  "//",
			".py":   "#",
			".java": "//",
			".rb":   "#",
			".go":   "//",
			".kt":   "//",
		}
	}
	if cfg.Refactor.VerifyCommands == nil {
		eslint := []string{"npx", "eslint", "--quiet"}
		cfg.Refactor.VerifyCommands = map[string][]string{
			".js":  eslint,
			".jsx": eslint,
			".ts":  eslint,
			".tsx": eslint,
		}
	}

	cfg.Report.Folder = SetThen(cfg.Report.Folder, DefaultReportFolder)
	cfg.Report.Name = SetThen(cfg.Report.Name, DefaultReportName)
	cfg.Report.Provider = SetThen(cfg.Report.Provider, "openai")
	cfg.Report.Model = SetThen(cfg.Report.Model, "gpt-4o-mini")

	cfg.Publisher.BranchPrefix = SetThen(cfg.Publisher.BranchPrefix, DefaultBranchPrefix)
	cfg.Publisher.RemoteName = SetThen(cfg.Publisher.RemoteName, DefaultRemoteName)
	cfg.Publisher.AuthorName = SetThen(cfg.Publisher.AuthorName, "Vulminator")
	cfg.Publisher.AuthorEmail = SetThen(cfg.Publisher.AuthorEmail, "vulminator@users.noreply.github.com")
	cfg.Publisher.PlaceholderTokens = SetThen(cfg.Publisher.PlaceholderTokens, []string{"placeholder"})
	cfg.Publisher.ExcerptLines = SetThen(cfg.Publisher.ExcerptLines, DefaultExcerptLines)
}

// GetWorkspaceHome returns the folder where per-run workspaces are created.
func GetWorkspaceHome(cfg *Config) string {
	return cfg.Vulminator.WorkspaceFolder
}

// ReportRelativePath returns the report location relative to a clone root.
func ReportRelativePath(cfg *Config, ext string) string {
	return filepath.Join(cfg.Report.Folder, cfg.Report.Name+ext)
}

// IsPlaceholderToken reports whether token is empty or one of the configured placeholder values.
func IsPlaceholderToken(cfg *Config, token string) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return true
	}
	for _, p := range cfg.Publisher.PlaceholderTokens {
		if strings.EqualFold(token, p) {
			return true
		}
	}
	return false
}
