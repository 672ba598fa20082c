package subflow

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Translator runs the extract → merge → translate → split → reinject pipeline.
type Translator struct {
	targetLang    string
	sourceLang    string
	provider      AIProvider
	cache         TranslationCache
	excludedTerms []string
	context       string
	glossary      map[string]string
	style         TranslationStyle
	processors    map[string]ContentProcessor
	concurrency   int
	timeout       time.Duration
	placeholder   string
	model         string
	stripMarkup   bool
	logger        *slog.Logger
}

// AIProvider is the interface for translation backends.
type AIProvider interface {
	Translate(ctx context.Context, req TranslateRequest) ([]string, error)
}

// TranslateRequest contains the parameters for a translation request.
type TranslateRequest struct {
	Texts         []string
	TargetLang    string
	SourceLang    string
	ExcludedTerms []string
	Context       string
	TextContexts  []string
	Glossary      map[string]string
	Style         TranslationStyle
}

// TranslationCache is the interface for translation caching.
type TranslationCache interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
}

// ContentProcessor extracts dialogue entries from a subtitle document and
// writes replacements back into it. Apply receives the value returned by
// Extract, so both sides count positions the same way.
type ContentProcessor interface {
	Extract(content string) (interface{}, []DialogueEntry, error)
	Apply(parsed interface{}, replacements map[int]string) (string, error)
	ContentType() string
}

// IssueReporter is implemented by parsed documents that passed lines through
// because they could not be used.
type IssueReporter interface {
	Issues() []error
}

// TranslatorOption is a functional option for configuring the Translator.
type TranslatorOption func(*Translator)

// WithSourceLang sets the source language.
func WithSourceLang(lang string) TranslatorOption {
	return func(t *Translator) {
		t.sourceLang = lang
	}
}

// WithCache sets the translation cache.
func WithCache(cache TranslationCache) TranslatorOption {
	return func(t *Translator) {
		t.cache = cache
	}
}

// WithExcludedTerms sets terms that should not be translated.
func WithExcludedTerms(terms []string) TranslatorOption {
	return func(t *Translator) {
		t.excludedTerms = terms
	}
}

// WithContext sets the global translation context (show title, setting).
func WithContext(ctx string) TranslatorOption {
	return func(t *Translator) {
		t.context = ctx
	}
}

// WithGlossary sets preferred translations for specific phrases.
func WithGlossary(glossary map[string]string) TranslatorOption {
	return func(t *Translator) {
		t.glossary = glossary
	}
}

// WithStyle sets the translation style/register.
func WithStyle(style TranslationStyle) TranslatorOption {
	return func(t *Translator) {
		t.style = style
	}
}

// WithProcessor registers a content processor.
func WithProcessor(processor ContentProcessor) TranslatorOption {
	return func(t *Translator) {
		t.processors[processor.ContentType()] = processor
	}
}

// WithConcurrency sets how many sentences may be translated at once.
func WithConcurrency(n int) TranslatorOption {
	return func(t *Translator) {
		if n > 0 {
			t.concurrency = n
		}
	}
}

// WithTimeout bounds each provider call. Zero disables the bound.
func WithTimeout(d time.Duration) TranslatorOption {
	return func(t *Translator) {
		t.timeout = d
	}
}

// WithModel names the model behind the provider. It becomes part of every
// cache key.
func WithModel(model string) TranslatorOption {
	return func(t *Translator) {
		t.model = model
	}
}

// WithPlaceholder sets the text used for sentences whose translation failed.
func WithPlaceholder(text string) TranslatorOption {
	return func(t *Translator) {
		if strings.TrimSpace(text) != "" {
			t.placeholder = text
		}
	}
}

// WithMarkupStripping controls whether override tags and HTML markup are
// removed before sentences are merged and sent for translation.
func WithMarkupStripping(enabled bool) TranslatorOption {
	return func(t *Translator) {
		t.stripMarkup = enabled
	}
}

// WithLogger sets the logger used for per-sentence failures and progress.
func WithLogger(logger *slog.Logger) TranslatorOption {
	return func(t *Translator) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTranslator creates a new Translator with the given target language and provider.
func NewTranslator(targetLang string, provider AIProvider, opts ...TranslatorOption) *Translator {
	t := &Translator{
		targetLang:  targetLang,
		sourceLang:  "en",
		provider:    provider,
		style:       StyleNeutral,
		processors:  make(map[string]ContentProcessor),
		concurrency: 1,
		placeholder: PlaceholderText,
		stripMarkup: true,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Process translates a subtitle document of the specified type.
//
// Provider failures never abort processing: the affected sentences carry the
// placeholder text instead. Only extraction and reinjection errors are
// returned.
func (t *Translator) Process(ctx context.Context, content string, contentType string) (*ProcessedContent, error) {
	processor, ok := t.processors[contentType]
	if !ok {
		return nil, &ProcessorError{
			Message:     "no processor registered for content type",
			ContentType: contentType,
		}
	}

	parsed, entries, err := processor.Extract(content)
	if err != nil {
		return nil, err
	}

	var skipped []error
	if r, ok := parsed.(IssueReporter); ok {
		skipped = r.Issues()
	}
	for _, issue := range skipped {
		t.logger.Warn("dialogue line passed through", "error", issue)
	}

	if len(entries) == 0 || t.isSourceLang() {
		return &ProcessedContent{
			Content:      content,
			TotalEntries: len(entries),
			Skipped:      skipped,
		}, nil
	}

	units := MergeSentences(EntryTexts(entries, t.stripMarkup))
	t.logger.Info("sentences merged", "entries", len(entries), "sentences", len(units))

	stats := t.TranslateUnits(ctx, units)

	replacements, mismatches := Replacements(units, len(entries))
	for _, m := range mismatches {
		t.logger.Warn("sentence range skipped", "error", m)
	}
	skipped = append(skipped, mismatches...)

	result, err := processor.Apply(parsed, replacements)
	if err != nil {
		return nil, err
	}

	return &ProcessedContent{
		Content:         result,
		Units:           units,
		TotalEntries:    len(entries),
		TranslatedCount: stats.Translated,
		CachedCount:     stats.Cached,
		FailedCount:     stats.Failed,
		Skipped:         skipped,
	}, nil
}

// ProcessASS is a convenience method for processing ASS subtitle tracks.
func (t *Translator) ProcessASS(ctx context.Context, track string) (*ProcessedContent, error) {
	return t.Process(ctx, track, "ass")
}

// TranslateStats counts how sentences were resolved.
type TranslateStats struct {
	Translated int // Unique sentences translated by the provider
	Cached     int // Unique sentences served from cache
	Failed     int // Units that received the placeholder
}

// translationJob is one unique sentence sent to the provider.
type translationJob struct {
	hash    string
	text    string
	context string
}

// TranslateUnits fills TranslatedText and Lines for every unit in place.
// Identical sentences are translated once, so only the preceding dialogue of
// their first occurrence is sent as context. A unit whose translation fails
// gets the placeholder text, still split over its TextLineCount lines.
func (t *Translator) TranslateUnits(ctx context.Context, units []SentenceUnit) TranslateStats {
	var stats TranslateStats
	translations := make(map[string]string)
	seen := make(map[string]bool)
	var jobs []translationJob

	for i, u := range units {
		text := strings.TrimSpace(u.SourceText)
		if text == "" {
			continue
		}
		hash := HashText(text)
		if seen[hash] {
			continue
		}
		seen[hash] = true

		if t.cache != nil {
			if cached, ok := t.cache.Get(t.cacheKey(hash)); ok {
				translations[hash] = cached
				stats.Cached++
				continue
			}
		}

		job := translationJob{hash: hash, text: text}
		if i > 0 {
			job.context = "Preceding dialogue: " + units[i-1].SourceText
		}
		jobs = append(jobs, job)
	}

	if len(jobs) > 0 && t.provider != nil {
		results := t.runJobs(ctx, jobs)
		for i, job := range jobs {
			r := results[i]
			if r.err != nil {
				t.logger.Warn("sentence translation failed", "text", job.text, "error", r.err)
				continue
			}
			translations[job.hash] = r.text
			stats.Translated++
			if t.cache != nil {
				if err := t.cache.Set(t.cacheKey(job.hash), r.text); err != nil {
					t.logger.Debug("cache write failed", "error", err)
				}
			}
		}
	}

	for i := range units {
		u := &units[i]
		text := strings.TrimSpace(u.SourceText)
		if text != "" {
			if translated, ok := translations[HashText(text)]; ok {
				u.TranslatedText = translated
				u.Failed = false
			} else {
				u.TranslatedText = t.placeholder
				u.Failed = true
				stats.Failed++
			}
		}
		u.Lines = u.Spread(SplitLines(u.TranslatedText, u.TextLineCount()))
	}

	return stats
}

// cacheKey scopes a sentence hash to the language pair, model and style.
func (t *Translator) cacheKey(hash string) string {
	return CacheKey(hash,
		NormalizeLocale(t.sourceLang),
		NormalizeLocale(t.targetLang),
		t.model+"/"+string(t.style))
}

// translateOne sends a single sentence to the provider.
func (t *Translator) translateOne(ctx context.Context, job translationJob) (string, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	results, err := t.provider.Translate(ctx, TranslateRequest{
		Texts:         []string{job.text},
		TargetLang:    t.targetLang,
		SourceLang:    t.sourceLang,
		ExcludedTerms: t.excludedTerms,
		Context:       t.context,
		TextContexts:  []string{job.context},
		Glossary:      t.glossary,
		Style:         t.style,
	})
	if err != nil {
		return "", err
	}
	if len(results) != 1 {
		return "", &CountMismatchError{Expected: 1, Got: len(results)}
	}
	return strings.TrimSpace(results[0]), nil
}

// Replacements maps each dialogue position to its reflowed line. Gap
// positions get no replacement. Positions at or beyond entryCount are
// skipped and reported once per unit.
func Replacements(units []SentenceUnit, entryCount int) (map[int]string, []error) {
	replacements := make(map[int]string)
	var mismatches []error

	for _, u := range units {
		lines := FitLines(u.Lines, u.LineCount())
		reported := false
		for k, line := range lines {
			pos := u.Start + k
			if pos < 0 || pos >= entryCount {
				if !reported {
					mismatches = append(mismatches, &RangeMismatchError{Start: u.Start, End: u.End, Entries: entryCount})
					reported = true
				}
				continue
			}
			if u.IsGap(pos) {
				continue
			}
			replacements[pos] = line
		}
	}

	return replacements, mismatches
}

// isSourceLang checks if target matches source (no translation needed).
func (t *Translator) isSourceLang() bool {
	return BaseLanguage(t.targetLang) == BaseLanguage(t.sourceLang)
}

// TargetLang returns the target language.
func (t *Translator) TargetLang() string {
	return t.targetLang
}

// SourceLang returns the source language.
func (t *Translator) SourceLang() string {
	return t.sourceLang
}

// IsSourceLang reports whether the target language matches the source
// language, in which case content is returned untouched.
func (t *Translator) IsSourceLang() bool {
	return t.isSourceLang()
}

// Glossary returns the glossary of preferred translations.
func (t *Translator) Glossary() map[string]string {
	return t.glossary
}

// Style returns the translation style.
func (t *Translator) Style() TranslationStyle {
	return t.style
}

// Placeholder returns the text used for failed translations.
func (t *Translator) Placeholder() string {
	return t.placeholder
}
