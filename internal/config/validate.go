package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateEnrichment(); err != nil {
		return err
	}
	return c.validateProviders()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.FuzzyThreshold < 1 || c.Matching.FuzzyThreshold > 100 {
		return errors.New("matching.fuzzy_threshold must be between 1 and 100")
	}
	return nil
}

func (c *Config) validateEnrichment() error {
	if c.Enrichment.MaxRetries < 0 {
		return errors.New("enrichment.max_retries must not be negative")
	}
	if c.Enrichment.BackoffCeilingSeconds < 1 {
		return errors.New("enrichment.backoff_ceiling_seconds must be positive")
	}
	if c.Enrichment.RetryMarginSeconds < 0 {
		return errors.New("enrichment.retry_margin_seconds must not be negative")
	}
	if c.Enrichment.ProgressMinIntervalSeconds < 0 {
		return errors.New("enrichment.progress_min_interval_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateProviders() error {
	for name, provider := range c.Providers {
		if name == "" {
			return errors.New("providers: provider name must not be empty")
		}
		if provider.Priority < 0 {
			return fmt.Errorf("providers.%s.priority must not be negative", name)
		}
		if provider.DelaySeconds < 0 {
			return fmt.Errorf("providers.%s.delay_seconds must not be negative", name)
		}
	}
	return nil
}
