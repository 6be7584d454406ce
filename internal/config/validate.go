package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/lehigh-university-libraries/imgscan/internal/logging"
	"github.com/lehigh-university-libraries/imgscan/internal/naming"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateProvider(); err != nil {
		return err
	}
	if err := c.validateNaming(); err != nil {
		return err
	}
	if c.Run.Concurrency < 0 {
		return fmt.Errorf("run.concurrency must not be negative, got %d", c.Run.Concurrency)
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateProvider() error {
	if !slices.Contains(Providers, c.Provider.Name) {
		return fmt.Errorf("unknown provider %q (expected one of %s)", c.Provider.Name, strings.Join(Providers, ", "))
	}
	if c.Provider.Temperature < 0 || c.Provider.Temperature > 2 {
		return fmt.Errorf("provider.temperature must be between 0 and 2, got %g", c.Provider.Temperature)
	}
	if c.Provider.MaxTokens < 0 {
		return fmt.Errorf("provider.max_tokens must not be negative, got %d", c.Provider.MaxTokens)
	}
	return nil
}

func (c *Config) validateNaming() error {
	if !c.Naming.Scheme.Valid() {
		return fmt.Errorf("naming.scheme must be one of %s", strings.Join(naming.SchemeNames(), ", "))
	}
	if c.Naming.MaxKeywordLength < 0 {
		return fmt.Errorf("naming.max_keyword_length must not be negative, got %d", c.Naming.MaxKeywordLength)
	}
	if err := naming.ValidatePrefix(c.Naming.Prefix); err != nil {
		return fmt.Errorf("naming.prefix: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if !slices.Contains(logging.Formats, c.Logging.Format) {
		return fmt.Errorf("logging.format must be one of %s, got %q", strings.Join(logging.Formats, ", "), c.Logging.Format)
	}
	return nil
}
