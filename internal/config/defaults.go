package config

const (
	defaultDataDir               = "~/.local/share/collate"
	defaultLogDir                = "~/.local/share/collate/logs"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultFuzzyThreshold        = 75
	defaultMaxRetries            = 3
	defaultBackoffCeilingSeconds = 300
	defaultRetryMarginSeconds    = 1
	defaultProviderDelaySeconds  = 1

	// unknownProviderPriority sorts providers without a config section after
	// every explicitly ranked one.
	unknownProviderPriority = 100
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Matching: Matching{
			FuzzyThreshold: defaultFuzzyThreshold,
		},
		Enrichment: Enrichment{
			MaxRetries:            defaultMaxRetries,
			BackoffCeilingSeconds: defaultBackoffCeilingSeconds,
			RetryMarginSeconds:    defaultRetryMarginSeconds,
		},
		Providers: map[string]Provider{
			"mal":      {Priority: 1, DelaySeconds: 1, Enabled: true},
			"anilist":  {Priority: 2, DelaySeconds: 1, Enabled: true},
			"mangadex": {Priority: 3, DelaySeconds: 2, Enabled: true},
		},
	}
}
