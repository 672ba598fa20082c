package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZaguanLabs/subflow"
	"github.com/pelletier/go-toml/v2"
)

// Translation contains the language pair and prompt settings.
type Translation struct {
	SourceLang     string   `toml:"source_lang"`
	TargetLang     string   `toml:"target_lang"`
	Style          string   `toml:"style"`
	Context        string   `toml:"context"`
	ExcludedTerms  []string `toml:"excluded_terms"`
	GlossaryFile   string   `toml:"glossary_file"`
	Concurrency    int      `toml:"concurrency"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	Placeholder    string   `toml:"placeholder"`
}

// Provider contains the OpenAI-compatible endpoint settings.
type Provider struct {
	APIKey      string  `toml:"api_key"`
	BaseURL     string  `toml:"base_url"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
}

// Retry controls how transient provider failures are retried.
type Retry struct {
	MaxRetries  int `toml:"max_retries"`
	BaseDelayMS int `toml:"base_delay_ms"`
	MaxDelayMS  int `toml:"max_delay_ms"`
}

// RateLimit paces provider calls.
type RateLimit struct {
	Enabled           bool `toml:"enabled"`
	RequestsPerMinute int  `toml:"requests_per_minute"`
	Burst             int  `toml:"burst"`
}

// Cache selects the translation cache backend.
type Cache struct {
	Backend     string `toml:"backend"` // none, memory, sqlite, redis
	TTLSeconds  int    `toml:"ttl_seconds"`
	SQLitePath  string `toml:"sqlite_path"`
	RedisURL    string `toml:"redis_url"`
	RedisPrefix string `toml:"redis_prefix"`
}

// Output controls how translations are written back.
type Output struct {
	Mode        string `toml:"mode"` // replace or dual
	StripMarkup bool   `toml:"strip_markup"`
}

// Logging configures the slog handler.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // auto, console, json
}

// Config is the full subflow configuration file.
type Config struct {
	Translation Translation `toml:"translation"`
	Provider    Provider    `toml:"provider"`
	Retry       Retry       `toml:"retry"`
	RateLimit   RateLimit   `toml:"rate_limit"`
	Cache       Cache       `toml:"cache"`
	Output      Output      `toml:"output"`
	Logging     Logging     `toml:"logging"`

	// Glossary is loaded from Translation.GlossaryFile.
	Glossary map[string]string `toml:"-"`
}

// Load reads the configuration at path, or the default location when path is
// empty. A missing file yields the defaults. It returns the config, the
// resolved path and whether the file existed.
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
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.Finalize(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// Finalize normalizes, fills environment fallbacks, loads the glossary and
// validates. Call it again after applying command line overrides.
func (c *Config) Finalize() error {
	if err := c.normalize(); err != nil {
		return err
	}
	if c.Provider.APIKey == "" {
		c.Provider.APIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}
	if c.Translation.GlossaryFile != "" && c.Glossary == nil {
		glossary, err := LoadGlossary(c.Translation.GlossaryFile)
		if err != nil {
			return err
		}
		c.Glossary = glossary
	}
	return c.Validate()
}

// RenderMode returns the parsed output mode.
func (c *Config) RenderMode() subflow.RenderMode {
	mode, err := subflow.ParseRenderMode(c.Output.Mode)
	if err != nil {
		return subflow.ModeReplace
	}
	return mode
}

// Style returns the translation style.
func (c *Config) Style() subflow.TranslationStyle {
	return subflow.TranslationStyle(c.Translation.Style)
}

// Timeout returns the per-call provider timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Translation.TimeoutSeconds) * time.Second
}

// RetryConfig converts the [retry] section.
func (c *Config) RetryConfig() subflow.RetryConfig {
	return subflow.RetryConfig{
		MaxRetries: c.Retry.MaxRetries,
		BaseDelay:  time.Duration(c.Retry.BaseDelayMS) * time.Millisecond,
		MaxDelay:   time.Duration(c.Retry.MaxDelayMS) * time.Millisecond,
	}
}

// RateLimitConfig converts the [rate_limit] section.
func (c *Config) RateLimitConfig() subflow.RateLimitConfig {
	return subflow.RateLimitConfig{
		RequestsPerMinute: c.RateLimit.RequestsPerMinute,
		BurstSize:         c.RateLimit.Burst,
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/subflow/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("subflow.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	return defaultPath, false, nil
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
	return filepath.Clean(pathValue), nil
}
