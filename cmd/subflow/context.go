package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZaguanLabs/subflow"
	"github.com/ZaguanLabs/subflow/cache"
	"github.com/ZaguanLabs/subflow/internal/config"
	"github.com/ZaguanLabs/subflow/internal/logging"
	"github.com/ZaguanLabs/subflow/processor"
	"github.com/ZaguanLabs/subflow/provider"
)

type rootFlags struct {
	configPath   string
	logLevel     string
	logFormat    string
	targetLang   string
	sourceLang   string
	apiKey       string
	model        string
	baseURL      string
	cacheBackend string
	concurrency  int
	quiet        bool
}

type commandContext struct {
	flags  rootFlags
	stdout io.Writer
	stderr io.Writer

	config *config.Config
	logger *slog.Logger
	runID  string
}

func newCommandContext(stdout, stderr io.Writer) *commandContext {
	return &commandContext{
		stdout: stdout,
		stderr: stderr,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// prepare loads the configuration, applies flag overrides and builds the
// run logger.
func (c *commandContext) prepare(cmd *cobra.Command) error {
	cfg, path, exists, err := config.Load(strings.TrimSpace(c.flags.configPath))
	if err != nil {
		return err
	}
	c.applyOverrides(cfg)
	if err := cfg.Finalize(); err != nil {
		return err
	}
	c.config = cfg

	base, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: c.stderr,
	})
	if err != nil {
		return err
	}
	c.logger, c.runID = logging.WithRun(base, cmd.Name())
	c.logger.Debug("configuration loaded", "path", path, "exists", exists)
	return nil
}

func (c *commandContext) applyOverrides(cfg *config.Config) {
	f := c.flags
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Logging.Format = f.logFormat
	}
	if f.targetLang != "" {
		cfg.Translation.TargetLang = f.targetLang
	}
	if f.sourceLang != "" {
		cfg.Translation.SourceLang = f.sourceLang
	}
	if f.apiKey != "" {
		cfg.Provider.APIKey = f.apiKey
	}
	if f.model != "" {
		cfg.Provider.Model = f.model
	}
	if f.baseURL != "" {
		cfg.Provider.BaseURL = f.baseURL
	}
	if f.cacheBackend != "" {
		cfg.Cache.Backend = f.cacheBackend
	}
	if f.concurrency > 0 {
		cfg.Translation.Concurrency = f.concurrency
	}
}

// progress prints a human summary line unless --quiet is set.
func (c *commandContext) progress(format string, args ...any) {
	if c.flags.quiet {
		return
	}
	fmt.Fprintf(c.stderr, format+"\n", args...)
}

// openCache opens the configured cache backend. The returned close function
// is never nil.
func (c *commandContext) openCache() (subflow.TranslationCache, func(), error) {
	cfg := c.config.Cache
	noop := func() {}

	switch cfg.Backend {
	case "none":
		return nil, noop, nil
	case "memory":
		return cache.NewInMemoryCache(cfg.TTLSeconds), noop, nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, noop, fmt.Errorf("create cache directory: %w", err)
		}
		store, err := cache.NewSQLiteCache(cfg.SQLitePath, cfg.TTLSeconds)
		if err != nil {
			return nil, noop, err
		}
		if removed, err := store.Prune(); err != nil {
			c.logger.Warn("cache prune failed", "error", err)
		} else if removed > 0 {
			c.logger.Debug("expired cache entries removed", "count", removed)
		}
		return store, func() { _ = store.Close() }, nil
	case "redis":
		store, err := cache.NewRedisCache(cache.RedisConfig{
			URL:       cfg.RedisURL,
			TTL:       cfg.TTLSeconds,
			KeyPrefix: cfg.RedisPrefix,
		})
		if err != nil {
			return nil, noop, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unsupported cache backend %q", cfg.Backend)
	}
}

// newProvider builds the OpenAI provider wrapped with rate limiting and retry.
func (c *commandContext) newProvider() (subflow.AIProvider, error) {
	cfg := c.config
	if cfg.Provider.APIKey == "" {
		return nil, errors.New("OpenAI API key required (--api-key or OPENAI_API_KEY env)")
	}

	var p subflow.AIProvider = provider.NewOpenAIProvider(provider.OpenAIConfig{
		APIKey:      cfg.Provider.APIKey,
		Model:       cfg.Provider.Model,
		Temperature: cfg.Provider.Temperature,
		BaseURL:     cfg.Provider.BaseURL,
	})

	if cfg.RateLimit.Enabled {
		p = subflow.NewRateLimitedProvider(p, cfg.RateLimitConfig())
	}

	retry := cfg.RetryConfig()
	logger := c.logger
	retry.OnRetry = func(attempt int, err error, delay time.Duration) {
		logger.Warn("retrying provider call", "attempt", attempt, "delay", delay, "error", err)
	}
	return subflow.NewRetryableProvider(p, retry), nil
}

// newTranslator builds a translator from the configuration. The caller must
// invoke the returned close function.
func (c *commandContext) newTranslator(mode subflow.RenderMode) (*subflow.Translator, func(), error) {
	p, err := c.newProvider()
	if err != nil {
		return nil, func() {}, err
	}

	store, closeCache, err := c.openCache()
	if err != nil {
		return nil, func() {}, err
	}

	cfg := c.config
	opts := []subflow.TranslatorOption{
		subflow.WithSourceLang(cfg.Translation.SourceLang),
		subflow.WithExcludedTerms(cfg.Translation.ExcludedTerms),
		subflow.WithContext(cfg.Translation.Context),
		subflow.WithGlossary(cfg.Glossary),
		subflow.WithStyle(cfg.Style()),
		subflow.WithModel(cfg.Provider.Model),
		subflow.WithConcurrency(cfg.Translation.Concurrency),
		subflow.WithTimeout(cfg.Timeout()),
		subflow.WithPlaceholder(cfg.Translation.Placeholder),
		subflow.WithMarkupStripping(cfg.Output.StripMarkup),
		subflow.WithLogger(c.logger),
		subflow.WithProcessor(processor.NewASSProcessor(processor.WithRenderMode(mode))),
		subflow.WithProcessor(processor.NewTextProcessor(processor.WithTextRenderMode(mode))),
	}
	if store != nil {
		opts = append(opts, subflow.WithCache(store))
	}

	return subflow.NewTranslator(cfg.Translation.TargetLang, p, opts...), closeCache, nil
}

// renderMode returns the --mode flag value when given, else the configured mode.
func (c *commandContext) renderMode(flagValue string) (subflow.RenderMode, error) {
	if strings.TrimSpace(flagValue) == "" {
		return c.config.RenderMode(), nil
	}
	return subflow.ParseRenderMode(flagValue)
}
