package testsupport

import (
	"path/filepath"
	"testing"

	"collate/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithFuzzyThreshold overrides the matcher acceptance threshold.
func WithFuzzyThreshold(threshold int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Matching.FuzzyThreshold = threshold
	}
}

// WithProvider registers or replaces a provider entry.
func WithProvider(name string, provider config.Provider) ConfigOption {
	return func(cfg *config.Config) {
		if cfg.Providers == nil {
			cfg.Providers = make(map[string]config.Provider)
		}
		cfg.Providers[name] = provider
	}
}
