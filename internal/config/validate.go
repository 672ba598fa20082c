package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ZaguanLabs/subflow"
)

func (c *Config) normalize() error {
	c.Translation.SourceLang = subflow.NormalizeLocale(c.Translation.SourceLang)
	c.Translation.TargetLang = subflow.NormalizeLocale(c.Translation.TargetLang)
	c.Translation.Style = strings.ToLower(strings.TrimSpace(c.Translation.Style))
	c.Provider.APIKey = strings.TrimSpace(c.Provider.APIKey)
	c.Provider.BaseURL = strings.TrimSpace(c.Provider.BaseURL)
	c.Provider.Model = strings.TrimSpace(c.Provider.Model)
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	c.Output.Mode = strings.ToLower(strings.TrimSpace(c.Output.Mode))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))

	var err error
	if c.Cache.SQLitePath, err = expandPath(strings.TrimSpace(c.Cache.SQLitePath)); err != nil {
		return err
	}
	if c.Translation.GlossaryFile, err = expandPath(strings.TrimSpace(c.Translation.GlossaryFile)); err != nil {
		return err
	}

	terms := c.Translation.ExcludedTerms[:0]
	for _, term := range c.Translation.ExcludedTerms {
		if t := strings.TrimSpace(term); t != "" {
			terms = append(terms, t)
		}
	}
	c.Translation.ExcludedTerms = terms
	return nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if _, err := subflow.ParseRenderMode(c.Output.Mode); err != nil {
		return fmt.Errorf("output.mode: %w", err)
	}
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	if c.Retry.MaxRetries < 0 {
		return errors.New("retry.max_retries must not be negative")
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute <= 0 {
		return errors.New("rate_limit.requests_per_minute must be positive")
	}
	return nil
}

func (c *Config) validateTranslation() error {
	if err := subflow.ValidateLanguage(c.Translation.SourceLang); err != nil {
		return fmt.Errorf("translation.source_lang: %w", err)
	}
	if err := subflow.ValidateLanguage(c.Translation.TargetLang); err != nil {
		return fmt.Errorf("translation.target_lang: %w", err)
	}
	switch subflow.TranslationStyle(c.Translation.Style) {
	case subflow.StyleFormal, subflow.StyleNeutral, subflow.StyleCasual, subflow.StyleColloquial:
	default:
		return fmt.Errorf("translation.style: unsupported value %q", c.Translation.Style)
	}
	if c.Translation.Concurrency < 1 {
		return errors.New("translation.concurrency must be at least 1")
	}
	if c.Translation.TimeoutSeconds < 0 {
		return errors.New("translation.timeout_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case "none", "memory":
	case "sqlite":
		if c.Cache.SQLitePath == "" {
			return errors.New("cache.sqlite_path is required for the sqlite backend")
		}
	case "redis":
		if strings.TrimSpace(c.Cache.RedisURL) == "" {
			return errors.New("cache.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend: unsupported value %q", c.Cache.Backend)
	}
	return nil
}
