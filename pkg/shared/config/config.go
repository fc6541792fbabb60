package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// DefaultConfigPath is used when no --config flag is provided.
const DefaultConfigPath = "config.yml"

// Config is the global YAML configuration.
type Config struct {
	Vulminator Vulminator `yaml:"vulminator"`
	Logger     Logger     `yaml:"logger"`
	HTTPClient HTTPClient `yaml:"http_client"`
	GitClient  GitClient  `yaml:"git_client"`
	Server     Server     `yaml:"server"`
	Scanner    Scanner    `yaml:"scanner"`
	Audit      Audit      `yaml:"audit"`
	Refactor   Refactor   `yaml:"refactor"`
	Report     Report     `yaml:"report"`
	Publisher  Publisher  `yaml:"publisher"`
}

// Vulminator holds core settings shared by every run.
type Vulminator struct {
	HomeFolder        string        `yaml:"home_folder"`
	WorkspaceFolder   string        `yaml:"workspace_folder"`
	MaxConcurrentJobs int           `yaml:"max_concurrent_jobs"`
	ToolTimeout       time.Duration `yaml:"tool_timeout"`
}

type Logger struct {
	Level           string `yaml:"level"`
	DisableTime     *bool  `yaml:"disable_time"`
	JSONFormat      *bool  `yaml:"json_format"`
	IncludeLocation *bool  `yaml:"include_location"`
}

type HTTPClient struct {
	Debug            *bool           `yaml:"debug"`
	RetryCount       int             `yaml:"retry_count"`
	RetryWaitTime    time.Duration   `yaml:"retry_wait_time"`
	RetryMaxWaitTime time.Duration   `yaml:"retry_max_wait_time"`
	Timeout          time.Duration   `yaml:"timeout"`
	TLSClientConfig  TLSClientConfig `yaml:"tls_client_config"`
	Proxy            Proxy           `yaml:"proxy"`
}

type TLSClientConfig struct {
	Verify *bool `yaml:"verify"`
}

type Proxy struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type GitClient struct {
	Depth       int           `yaml:"depth"`
	InsecureTLS *bool         `yaml:"insecure_tls"`
	Timeout     time.Duration `yaml:"timeout"`
}

type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Scanner configures the static analyzer.
type Scanner struct {
	Binary         string            `yaml:"binary"`
	Presets        map[string]string `yaml:"presets"`
	AdditionalArgs []string          `yaml:"additional_args"`
}

// Audit configures the dependency auditor and the upgrade step that follows it.
type Audit struct {
	Binary                   string   `yaml:"binary"`
	Lockfile                 string   `yaml:"lockfile"`
	UpgradeSeverities        []string `yaml:"upgrade_severities"`
	SkipDirs                 []string `yaml:"skip_dirs"`
	ContinueOnUpgradeFailure *bool    `yaml:"continue_on_upgrade_failure"`
}

// Refactor configures the annotation queue and the per-extension lookup tables.
type Refactor struct {
	MaxTasks        int                 `yaml:"max_tasks"`
	SnippetSize     int                 `yaml:"snippet_size"`
	Severities      []string            `yaml:"severities"`
	CommentPrefixes map[string]string   `yaml:"comment_prefixes"`
	VerifyCommands  map[string][]string `yaml:"verify_commands"`
}

// Report configures report synthesis and the model used by the assisted path.
type Report struct {
	Folder    string `yaml:"folder"`
	Name      string `yaml:"name"`
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	OllamaURL string `yaml:"ollama_url"`
	SARIF     *bool  `yaml:"sarif"`
}

// Publisher configures pull request publication.
type Publisher struct {
	GithubToken       string   `yaml:"github_token"`
	APIURL            string   `yaml:"api_url"`
	BranchPrefix      string   `yaml:"branch_prefix"`
	RemoteName        string   `yaml:"remote_name"`
	AuthorName        string   `yaml:"author_name"`
	AuthorEmail       string   `yaml:"author_email"`
	PlaceholderTokens []string `yaml:"placeholder_tokens"`
	ExcerptLines      int      `yaml:"excerpt_lines"`
}

// ValidateConfigPath checks that path points to a regular file.
func ValidateConfigPath(path string) error {
	s, err := os.Stat(path)
	if err != nil {
		return err
	}
	if s.IsDir() {
		return fmt.Errorf("%q is a directory, not a file", path)
	}
	return nil
}

// LoadYAML decodes the YAML file at configPath into data.
func LoadYAML(configPath string, data interface{}) error {
	if err := ValidateConfigPath(configPath); err != nil {
		return err
	}

	file, err := os.Open(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	d := yaml.NewDecoder(file)
	if err := d.Decode(data); err != nil {
		return err
	}

	return nil
}

// LoadConfig reads the configuration file, applies environment overrides and defaults.
// A missing file at the default location is not an error: built-in defaults are used instead.
func LoadConfig(configPath string) (*Config, error) {
	cfg := &Config{}

	path := SetThen(configPath, DefaultConfigPath)
	if err := LoadYAML(path, cfg); err != nil {
		if !(os.IsNotExist(err) && configPath == "") {
			return nil, fmt.Errorf("failed to load config %q: %w", path, err)
		}
	}

	ApplyEnv(cfg)
	ApplyDefaults(cfg)
	return cfg, nil
}
