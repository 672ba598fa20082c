package config

const (
	defaultSourceLang     = "en"
	defaultTargetLang     = "ja_JP"
	defaultStyle          = "neutral"
	defaultConcurrency    = 4
	defaultTimeoutSeconds = 60
	defaultModel          = "gpt-4o-mini"
	defaultTemperature    = 0.3
	defaultMaxRetries     = 3
	defaultBaseDelayMS    = 1000
	defaultMaxDelayMS     = 30000
	defaultRequestsPerMin = 60
	defaultCacheBackend   = "sqlite"
	defaultCacheTTL       = 0
	defaultSQLitePath     = "~/.cache/subflow/translations.db"
	defaultRedisPrefix    = "subflow:"
	defaultOutputMode     = "replace"
	defaultLogLevel       = "info"
	defaultLogFormat      = "auto"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Translation: Translation{
			SourceLang:     defaultSourceLang,
			TargetLang:     defaultTargetLang,
			Style:          defaultStyle,
			Concurrency:    defaultConcurrency,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Provider: Provider{
			Model:       defaultModel,
			Temperature: defaultTemperature,
		},
		Retry: Retry{
			MaxRetries:  defaultMaxRetries,
			BaseDelayMS: defaultBaseDelayMS,
			MaxDelayMS:  defaultMaxDelayMS,
		},
		RateLimit: RateLimit{
			Enabled:           true,
			RequestsPerMinute: defaultRequestsPerMin,
		},
		Cache: Cache{
			Backend:     defaultCacheBackend,
			TTLSeconds:  defaultCacheTTL,
			SQLitePath:  defaultSQLitePath,
			RedisPrefix: defaultRedisPrefix,
		},
		Output: Output{
			Mode:        defaultOutputMode,
			StripMarkup: true,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
