package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/imgscan/internal/naming"
	"github.com/lehigh-university-libraries/imgscan/internal/ollama"
	"github.com/lehigh-university-libraries/imgscan/internal/openai"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"IMGSCAN_PROVIDER", "IMGSCAN_MODEL", "IMGSCAN_API_BASE_URL", "OPENAI_API_KEY", "GEMINI_API_KEY", "OLLAMA_HOST"} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "none.toml")

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Error("Expected exists=false")
	}
	if resolved != path {
		t.Errorf("Expected resolved path %s, got %s", path, resolved)
	}
	if cfg.Provider.Name != "openai" || cfg.Naming.Prefix != "IMGSCAN" || cfg.Naming.Scheme != naming.OriginalPrefixDesc {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if !cfg.Naming.SkipProcessed || cfg.Provider.Temperature != 0.3 || cfg.Provider.MaxTokens != 50 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Provider.ResolvedBaseURL() != openai.DefaultBaseURL || cfg.Provider.ResolvedModel() != openai.DefaultModel {
		t.Errorf("unexpected provider defaults: %s %s", cfg.Provider.ResolvedBaseURL(), cfg.Provider.ResolvedModel())
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[provider]
name = "Ollama"
temperature = 0.7

[naming]
scheme = "prefix_desc"
prefix = "SCAN"
skip_processed = false

[run]
concurrency = 4
exclude = ["thumbs/**"]

[logging]
format = "JSON"
`)

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Error("Expected exists=true")
	}
	if cfg.Provider.Name != "ollama" || cfg.Provider.Temperature != 0.7 {
		t.Errorf("unexpected provider: %+v", cfg.Provider)
	}
	if cfg.Provider.MaxTokens != 50 {
		t.Errorf("Expected unset keys to keep defaults, got max_tokens %d", cfg.Provider.MaxTokens)
	}
	if cfg.Naming.Scheme != naming.PrefixDesc || cfg.Naming.Prefix != "SCAN" || cfg.Naming.SkipProcessed {
		t.Errorf("unexpected naming: %+v", cfg.Naming)
	}
	if cfg.Run.Concurrency != 4 || len(cfg.Run.Exclude) != 1 {
		t.Errorf("unexpected run: %+v", cfg.Run)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected normalized format json, got %s", cfg.Logging.Format)
	}
	if cfg.Provider.ResolvedBaseURL() != ollama.DefaultBaseURL || cfg.Provider.ResolvedModel() != ollama.DefaultModel {
		t.Errorf("unexpected ollama defaults: %s %s", cfg.Provider.ResolvedBaseURL(), cfg.Provider.ResolvedModel())
	}
}

func TestEnvOverridesConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("IMGSCAN_PROVIDER", "gemini")
	t.Setenv("IMGSCAN_MODEL", "gemini-2.0-flash")
	t.Setenv("GEMINI_API_KEY", "env-key")
	path := writeConfig(t, `
[provider]
name = "openai"
model = "file-model"
`)

	cfg, _, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Provider.Name != "gemini" || cfg.Provider.ResolvedModel() != "gemini-2.0-flash" {
		t.Errorf("Expected env overrides, got %+v", cfg.Provider)
	}
	if cfg.Provider.ResolvedAPIKey() != "env-key" {
		t.Errorf("Expected key from GEMINI_API_KEY, got %q", cfg.Provider.ResolvedAPIKey())
	}
}

func TestOllamaHost(t *testing.T) {
	clearEnv(t)
	t.Setenv("OLLAMA_HOST", "10.0.0.5:11434")
	p := Provider{Name: ProviderOllama}
	if got := p.ResolvedBaseURL(); got != "http://10.0.0.5:11434" {
		t.Errorf("Expected OLLAMA_HOST with scheme, got %s", got)
	}
	p.BaseURL = "http://gpu:11434"
	if got := p.ResolvedBaseURL(); got != "http://gpu:11434" {
		t.Errorf("Expected explicit base url, got %s", got)
	}
}

func TestLoadDefaultLocations(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	work := t.TempDir()
	t.Chdir(work)

	if err := os.WriteFile(filepath.Join(work, "imgscan.toml"), []byte("[naming]\nprefix = \"LOCAL\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, resolved, exists, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || cfg.Naming.Prefix != "LOCAL" || filepath.Base(resolved) != "imgscan.toml" {
		t.Errorf("Expected project config to be used, got %s exists=%v prefix=%s", resolved, exists, cfg.Naming.Prefix)
	}

	userPath := filepath.Join(home, ".config", "imgscan", "config.toml")
	if err := os.MkdirAll(filepath.Dir(userPath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(userPath, []byte("[naming]\nprefix = \"USER\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, _, _, err = Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Naming.Prefix != "USER" {
		t.Errorf("Expected user config to win, got prefix %s", cfg.Naming.Prefix)
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "bad toml", content: "[provider\nname=", wantErr: "failed to parse config"},
		{name: "unknown scheme", content: "[naming]\nscheme = \"by_date\"\n", wantErr: "failed to parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := Load(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "unknown provider", mutate: func(c *Config) { c.Provider.Name = "claude" }},
		{name: "temperature too high", mutate: func(c *Config) { c.Provider.Temperature = 2.5 }},
		{name: "negative temperature", mutate: func(c *Config) { c.Provider.Temperature = -0.1 }},
		{name: "negative max tokens", mutate: func(c *Config) { c.Provider.MaxTokens = -1 }},
		{name: "zero scheme", mutate: func(c *Config) { c.Naming.Scheme = 0 }},
		{name: "negative keyword length", mutate: func(c *Config) { c.Naming.MaxKeywordLength = -5 }},
		{name: "prefix with parent directory", mutate: func(c *Config) { c.Naming.Prefix = "../IMGSCAN" }},
		{name: "prefix with separator", mutate: func(c *Config) { c.Naming.Prefix = "a/b" }},
		{name: "negative concurrency", mutate: func(c *Config) { c.Run.Concurrency = -2 }},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "chatty" }},
		{name: "bad log format", mutate: func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}

	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Sample config does not load: %v", err)
	}
	if !exists {
		t.Error("Expected sample file to exist")
	}
	defaults := Default()
	if cfg.Naming != defaults.Naming || cfg.Provider.Name != defaults.Provider.Name {
		t.Errorf("Expected sample to match defaults, got %+v", cfg)
	}
}
