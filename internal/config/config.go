package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Matching contains configuration for title matching.
type Matching struct {
	// FuzzyThreshold is the minimum similarity score (0-100) at which a
	// fuzzy title match is accepted. Exact matches bypass the threshold.
	FuzzyThreshold int `toml:"fuzzy_threshold"`
}

// Enrichment contains configuration for the background enrichment run.
type Enrichment struct {
	MaxRetries            int `toml:"max_retries"`
	BackoffCeilingSeconds int `toml:"backoff_ceiling_seconds"`
	RetryMarginSeconds    int `toml:"retry_margin_seconds"`
	// ProgressMinIntervalSeconds throttles per-item progress callbacks;
	// the final item always reports.
	ProgressMinIntervalSeconds int `toml:"progress_min_interval_seconds"`
}

// Provider contains per-provider settings. Priority 1 is the most
// authoritative source; DelaySeconds paces outbound calls to respect the
// provider's published rate limits.
type Provider struct {
	Priority     int  `toml:"priority"`
	DelaySeconds int  `toml:"delay_seconds"`
	Enabled      bool `toml:"enabled"`
}

// Config encapsulates all configuration values for collate.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Logging: log format and level
//   - Matching: title similarity threshold
//   - Enrichment: retry and backoff behavior for provider calls
//   - Providers: per-provider priority and pacing
type Config struct {
	Paths      Paths               `toml:"paths"`
	Logging    Logging             `toml:"logging"`
	Matching   Matching            `toml:"matching"`
	Enrichment Enrichment          `toml:"enrichment"`
	Providers  map[string]Provider `toml:"providers"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/collate/config.toml")
}

// SampleConfig returns the embedded sample configuration document.
func SampleConfig() string {
	return sampleConfig
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a config file was found at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("collate.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the engine needs at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.ReportsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the catalog database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "catalog.db")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "collate.lock")
}

// ReportsDir returns the directory run report artifacts are written to.
func (c *Config) ReportsDir() string {
	return filepath.Join(c.Paths.LogDir, "reports")
}

// ProgressMinInterval returns the minimum delay between progress callbacks.
func (c *Config) ProgressMinInterval() time.Duration {
	return time.Duration(c.Enrichment.ProgressMinIntervalSeconds) * time.Second
}

// ProviderDelay returns the configured pacing delay for a provider, or the
// default when the provider has no explicit section.
func (c *Config) ProviderDelay(name string) time.Duration {
	if p, ok := c.Providers[name]; ok && p.DelaySeconds > 0 {
		return time.Duration(p.DelaySeconds) * time.Second
	}
	return time.Duration(defaultProviderDelaySeconds) * time.Second
}

// ProviderPriority returns the configured priority for a provider. Unknown
// providers sort after every configured one.
func (c *Config) ProviderPriority(name string) int {
	if p, ok := c.Providers[name]; ok && p.Priority > 0 {
		return p.Priority
	}
	return unknownProviderPriority
}

// ProviderEnabled reports whether a provider participates in enrichment.
// Providers without a config section are enabled by default.
func (c *Config) ProviderEnabled(name string) bool {
	p, ok := c.Providers[name]
	if !ok {
		return true
	}
	return p.Enabled
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}

	if c.Matching.FuzzyThreshold == 0 {
		c.Matching.FuzzyThreshold = defaultFuzzyThreshold
	}
	if c.Enrichment.MaxRetries == 0 {
		c.Enrichment.MaxRetries = defaultMaxRetries
	}
	if c.Enrichment.BackoffCeilingSeconds == 0 {
		c.Enrichment.BackoffCeilingSeconds = defaultBackoffCeilingSeconds
	}
	if c.Enrichment.RetryMarginSeconds == 0 {
		c.Enrichment.RetryMarginSeconds = defaultRetryMarginSeconds
	}

	for name, provider := range c.Providers {
		trimmed := strings.ToLower(strings.TrimSpace(name))
		if trimmed != name {
			delete(c.Providers, name)
		}
		if provider.DelaySeconds <= 0 {
			provider.DelaySeconds = defaultProviderDelaySeconds
		}
		c.Providers[trimmed] = provider
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
