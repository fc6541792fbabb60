package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vulminator-io/vulminator/pkg/shared/files"
)

// ValidateConfig checks if the global configurations have valid values.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("YAML global config: configuration object is nil")
	}
	if err := ValidateVulminatorConfig(cfg); err != nil {
		return fmt.Errorf("YAML global config: vulminator directive is invalid: %w", err)
	}
	if err := ValidateHTTPConfig(&cfg.HTTPClient); err != nil {
		return fmt.Errorf("YAML global config: http_client directive is invalid: %w", err)
	}
	if err := ValidateGitConfig(&cfg.GitClient); err != nil {
		return fmt.Errorf("YAML global config: git_client directive is invalid: %w", err)
	}
	if err := ValidateRefactorConfig(&cfg.Refactor); err != nil {
		return fmt.Errorf("YAML global config: refactor directive is invalid: %w", err)
	}
	if err := validatePort(cfg.Server.Port); err != nil {
		return fmt.Errorf("YAML global config: server directive is invalid: %w", err)
	}
	return nil
}

// ValidateVulminatorConfig resolves and creates the home and workspace folders and checks limits.
func ValidateVulminatorConfig(cfg *Config) error {
	if cfg.Vulminator.MaxConcurrentJobs < 1 || cfg.Vulminator.MaxConcurrentJobs > 256 {
		return fmt.Errorf("max_concurrent_jobs must be between 1 and 256: %d", cfg.Vulminator.MaxConcurrentJobs)
	}
	if err := validateDuration(cfg.Vulminator.ToolTimeout, "tool_timeout", 2*time.Hour); err != nil {
		return err
	}
	if err := updateHome(cfg); err != nil {
		return fmt.Errorf("failed to update home folder: %w", err)
	}
	if err := updateFolder(&cfg.Vulminator.WorkspaceFolder, "runs", cfg); err != nil {
		return fmt.Errorf("failed to update workspace folder: %w", err)
	}
	return nil
}

// ValidateGitConfig checks if the Git configurations have valid values.
func ValidateGitConfig(gitConfig *GitClient) error {
	if gitConfig == nil {
		return fmt.Errorf("git configuration is nil")
	}
	if gitConfig.Depth < 0 {
		return fmt.Errorf("depth must be non-negative: %d", gitConfig.Depth)
	}

	if err := validateDuration(gitConfig.Timeout, "timeout", 1*time.Hour); err != nil {
		return err
	}
	return nil
}

// ValidateHTTPConfig checks if the HTTP configurations have valid values.
func ValidateHTTPConfig(httpConfig *HTTPClient) error {
	if httpConfig == nil {
		return fmt.Errorf("HTTP configuration is nil")
	}
	if httpConfig.RetryCount < 0 || httpConfig.RetryCount > 20 {
		return fmt.Errorf("retry_count must be between 0 and 20: %d", httpConfig.RetryCount)
	}

	durations := map[string]time.Duration{
		"RetryMaxWaitTime": httpConfig.RetryMaxWaitTime,
		"RetryWaitTime":    httpConfig.RetryWaitTime,
		"Timeout":          httpConfig.Timeout,
	}
	for name, duration := range durations {
		if err := validateDuration(duration, name, 100*time.Second); err != nil {
			return err
		}
	}

	if err := validateProxy(&httpConfig.Proxy); err != nil {
		return err
	}

	return nil
}

// ValidateRefactorConfig checks the refactor queue limits and extension tables.
func ValidateRefactorConfig(refactor *Refactor) error {
	if refactor.MaxTasks < 0 || refactor.MaxTasks > 100 {
		return fmt.Errorf("max_tasks must be between 0 and 100: %d", refactor.MaxTasks)
	}
	if refactor.SnippetSize < 1 {
		return fmt.Errorf("snippet_size must be positive: %d", refactor.SnippetSize)
	}
	for ext := range refactor.CommentPrefixes {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("comment_prefixes key %q must start with a dot", ext)
		}
	}
	for ext, command := range refactor.VerifyCommands {
		if len(command) == 0 {
			return fmt.Errorf("verify_commands entry for %q is empty", ext)
		}
	}
	return nil
}

// validateDuration checks that a time.Duration is valid and within a specified maximum duration.
func validateDuration(d time.Duration, name string, max time.Duration) error {
	if d < 0 {
		return fmt.Errorf("invalid duration for %q: %v cannot be negative", name, d)
	}
	if d > max {
		return fmt.Errorf("%q duration is too long: %v exceeds maximum of %v", name, d, max)
	}
	return nil
}

// validateProxy checks if the given Proxy settings are valid.
func validateProxy(proxy *Proxy) error {
	if proxy == nil {
		return fmt.Errorf("proxy configuration is nil")
	}

	// If host or port is not set, skip further validation
	if proxy.Host == "" || proxy.Port == 0 {
		return nil
	}

	if err := validateHost(&proxy.Host); err != nil {
		return err
	}

	return validatePort(proxy.Port)
}

// validateHost ensures the host includes a scheme; adds "http" if missing.
func validateHost(host *string) error {
	if host == nil {
		return fmt.Errorf("host string pointer is nil")
	}

	if !strings.Contains(*host, "://") {
		*host = "http://" + *host
	}
	*host = strings.TrimRight(*host, "/")

	if _, err := url.Parse(*host); err != nil {
		return fmt.Errorf("invalid host URL: %w", err)
	}

	return nil
}

// validatePort checks if the port is in the valid range.
func validatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

// updateHome sets HomeFolder to ~/.vulminator unless configured, then creates it.
func updateHome(cfg *Config) error {
	if cfg.Vulminator.HomeFolder == "" {
		homeFolder, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("unable to get user home folder: %w", err)
		}
		cfg.Vulminator.HomeFolder = filepath.Join(homeFolder, ".vulminator")
	}

	expandedHomePath, err := files.ExpandPath(cfg.Vulminator.HomeFolder)
	if err != nil {
		return fmt.Errorf("failed to expand home path %q: %w", cfg.Vulminator.HomeFolder, err)
	}
	cfg.Vulminator.HomeFolder = expandedHomePath

	if err := files.CreateFolderIfNotExists(expandedHomePath); err != nil {
		return fmt.Errorf("failed to create home folder %q: %w", expandedHomePath, err)
	}
	return nil
}

// updateFolder defaults folder to a subfolder of home, expands it and creates it.
func updateFolder(folder *string, defaultSubFolder string, cfg *Config) error {
	if *folder == "" {
		*folder = filepath.Join(cfg.Vulminator.HomeFolder, defaultSubFolder)
	}

	expanded, err := files.ExpandPath(*folder)
	if err != nil {
		return fmt.Errorf("failed to expand path %q: %w", *folder, err)
	}
	*folder = expanded

	if err := files.CreateFolderIfNotExists(expanded); err != nil {
		return fmt.Errorf("failed to create folder %q: %w", expanded, err)
	}
	return nil
}
