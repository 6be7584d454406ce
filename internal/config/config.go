package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/imgscan/internal/gemini"
	"github.com/lehigh-university-libraries/imgscan/internal/naming"
	"github.com/lehigh-university-libraries/imgscan/internal/ollama"
	"github.com/lehigh-university-libraries/imgscan/internal/openai"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Provider names accepted in configuration and on the command line.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
)

// Providers lists the supported describer backends.
var Providers = []string{ProviderOpenAI, ProviderOllama, ProviderGemini}

// Config is the imgscan configuration file.
type Config struct {
	Provider Provider `toml:"provider"`
	Naming   Naming   `toml:"naming"`
	Run      Run      `toml:"run"`
	Logging  Logging  `toml:"logging"`
}

// Provider selects and tunes the vision model backend. Empty BaseURL, Model
// and APIKey fall back to per-provider defaults at use time, so switching
// providers on the command line does not inherit another backend's values.
type Provider struct {
	Name           string  `toml:"name"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	APIKey         string  `toml:"api_key"`
	Temperature    float64 `toml:"temperature"`
	MaxTokens      int     `toml:"max_tokens"`
	Prompt         string  `toml:"prompt"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Naming controls how new filenames are built.
type Naming struct {
	Scheme           naming.Scheme `toml:"scheme"`
	Prefix           string        `toml:"prefix"`
	MaxKeywordLength int           `toml:"max_keyword_length"`
	SkipProcessed    bool          `toml:"skip_processed"`
}

// Run holds batch settings.
type Run struct {
	Concurrency int      `toml:"concurrency"`
	Exclude     []string `toml:"exclude"`
	Report      string   `toml:"report"`
}

// Logging configures the slog handler.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/imgscan/config.toml")
}

// Load locates, parses, normalizes and validates a configuration file. A
// missing file is not an error; defaults are returned. The resolved path and
// whether it existed are returned alongside the config.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("failed to open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("failed to parse config %s: %w", resolvedPath, err)
		}
	}

	cfg.normalize()

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
			return "", false, fmt.Errorf("failed to stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("imgscan.toml")
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

// CreateSample writes the sample configuration file to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write sample config: %w", err)
	}
	return nil
}

// ResolvedBaseURL returns the configured endpoint or the provider default.
// For ollama OLLAMA_HOST is honored, as the ollama CLI does.
func (p Provider) ResolvedBaseURL() string {
	if p.BaseURL != "" {
		return p.BaseURL
	}
	switch p.Name {
	case ProviderOllama:
		if host := strings.TrimSpace(os.Getenv("OLLAMA_HOST")); host != "" {
			if !strings.Contains(host, "://") {
				host = "http://" + host
			}
			return host
		}
		return ollama.DefaultBaseURL
	case ProviderOpenAI:
		return openai.DefaultBaseURL
	default:
		return ""
	}
}

// ResolvedModel returns the configured model or the provider default.
func (p Provider) ResolvedModel() string {
	if p.Model != "" {
		return p.Model
	}
	switch p.Name {
	case ProviderOllama:
		return ollama.DefaultModel
	case ProviderGemini:
		return gemini.DefaultModel
	default:
		return openai.DefaultModel
	}
}

// ResolvedAPIKey returns the configured key or the provider's environment variable.
func (p Provider) ResolvedAPIKey() string {
	if p.APIKey != "" {
		return p.APIKey
	}
	switch p.Name {
	case ProviderOpenAI:
		return strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	case ProviderGemini:
		return strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	default:
		return ""
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath applies the config path rules (~ expansion, absolute) to a path.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
