package config

import (
	"github.com/lehigh-university-libraries/imgscan/internal/naming"
	"github.com/lehigh-university-libraries/imgscan/internal/providers"
)

const (
	defaultProvider       = ProviderOpenAI
	defaultTemperature    = 0.3
	defaultMaxTokens      = 50
	defaultTimeoutSeconds = 60
	defaultPrefix         = "IMGSCAN"
	defaultScheme         = naming.OriginalPrefixDesc
	defaultConcurrency    = 1
	defaultLogLevel       = "info"
	defaultLogFormat      = "text"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Provider: Provider{
			Name:           defaultProvider,
			Temperature:    defaultTemperature,
			MaxTokens:      defaultMaxTokens,
			Prompt:         providers.DefaultPrompt,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Naming: Naming{
			Scheme:           defaultScheme,
			Prefix:           defaultPrefix,
			MaxKeywordLength: naming.DefaultMaxKeywordLength,
			SkipProcessed:    true,
		},
		Run: Run{
			Concurrency: defaultConcurrency,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
