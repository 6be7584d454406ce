package config

import (
	"os"
	"strings"

	"github.com/lehigh-university-libraries/imgscan/internal/providers"
)

// normalize trims values, applies IMGSCAN_* environment overrides and
// restores defaults for fields left blank.
func (c *Config) normalize() {
	c.normalizeProvider()
	c.normalizeLogging()
	c.Naming.Prefix = strings.TrimSpace(c.Naming.Prefix)
	c.Run.Report = strings.TrimSpace(c.Run.Report)
}

func (c *Config) normalizeProvider() {
	if value, ok := os.LookupEnv("IMGSCAN_PROVIDER"); ok && strings.TrimSpace(value) != "" {
		c.Provider.Name = value
	}
	if value, ok := os.LookupEnv("IMGSCAN_MODEL"); ok && strings.TrimSpace(value) != "" {
		c.Provider.Model = value
	}
	if value, ok := os.LookupEnv("IMGSCAN_API_BASE_URL"); ok && strings.TrimSpace(value) != "" {
		c.Provider.BaseURL = value
	}

	c.Provider.Name = strings.ToLower(strings.TrimSpace(c.Provider.Name))
	if c.Provider.Name == "" {
		c.Provider.Name = defaultProvider
	}
	c.Provider.Model = strings.TrimSpace(c.Provider.Model)
	c.Provider.BaseURL = strings.TrimSpace(c.Provider.BaseURL)
	c.Provider.APIKey = strings.TrimSpace(c.Provider.APIKey)
	if strings.TrimSpace(c.Provider.Prompt) == "" {
		c.Provider.Prompt = providers.DefaultPrompt
	}
	if c.Provider.TimeoutSeconds <= 0 {
		c.Provider.TimeoutSeconds = defaultTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
