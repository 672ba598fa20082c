package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/ZaguanLabs/subflow"
	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements AIProvider using OpenAI's chat completions API,
// or any server that speaks the same protocol.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float32
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey      string  // OpenAI API key
	Model       string  // Model to use (default: "gpt-4o-mini")
	Temperature float32 // Temperature for generation (default: 0.3)
	BaseURL     string  // Custom base URL (optional)
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
	}
}

// Model returns the configured model name.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// Translate translates a batch of subtitle sentences.
func (p *OpenAIProvider) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	if len(req.Texts) == 0 {
		return []string{}, nil
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.buildSystemPrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: p.buildUserMessage(req)},
		},
		Temperature: p.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, &subflow.ProviderError{
			Message:   "OpenAI API call failed",
			Cause:     err,
			Retryable: isRetryableError(err),
		}
	}

	if len(resp.Choices) == 0 {
		return nil, &subflow.ProviderError{
			Message:   "no response from OpenAI",
			Retryable: true,
		}
	}

	return p.parseResponse(resp.Choices[0].Message.Content, len(req.Texts))
}

func (p *OpenAIProvider) buildSystemPrompt(req TranslateRequest) string {
	sourceLang := req.SourceLang
	if sourceLang == "" {
		sourceLang = "en"
	}

	sourceName := subflow.GetLanguageName(sourceLang)
	targetName := subflow.GetLanguageName(req.TargetLang)

	contextText := "The dialogue comes from a film or television episode."
	if req.Context != "" {
		contextText = fmt.Sprintf("The dialogue comes from: %s. Keep names and tone consistent with it.", req.Context)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `# Role
You are a professional subtitle translator working from %s into %s.

# Context
%s

# Register
%s

# Task
Each input string is one complete spoken sentence that was assembled from several subtitle lines. Translate each sentence into natural %s as it would be spoken on screen.

# Style Guide
- **Brevity**: Subtitles are read while watching. Prefer short, spoken phrasing over literal completeness.
- **Punctuation**: Use the punctuation of the target language. Keep clause boundaries visible, since the translation is split back into lines at commas and full stops.
- **Markup**: Do NOT translate or remove anything inside curly braces such as {\i1}. Keep \N line breaks only where the source has them.
- **Context Hints**: A "context" field shows the preceding dialogue. Use it to resolve pronouns and tone, but never translate it.`,
		sourceName, targetName, contextText, styleDescription(req.Style), targetName)

	if len(req.Glossary) > 0 {
		b.WriteString("\n\n# Glossary\nWhen you encounter these phrases, use these translations:")
		keys := make([]string, 0, len(req.Glossary))
		for k := range req.Glossary {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "\n- \"%s\" → %s", k, req.Glossary[k])
		}
	}

	if len(req.ExcludedTerms) > 0 {
		fmt.Fprintf(&b, "\n\n# Exclusions\nKeep the following terms exactly as they appear in the source:\n- %s",
			strings.Join(req.ExcludedTerms, "\n- "))
	}

	b.WriteString(`

# Format
Return a valid JSON object with a single key "translations" containing an array of strings in the exact same order as the input.
Example: { "translations": ["translated sentence 1", "translated sentence 2"] }
- Do NOT wrap in Markdown code blocks.
- Return exactly one string per input sentence.`)

	return b.String()
}

func styleDescription(style subflow.TranslationStyle) string {
	switch style {
	case subflow.StyleFormal:
		return "Use polite, formal speech throughout."
	case subflow.StyleCasual:
		return "Use relaxed, everyday speech as between friends."
	case subflow.StyleColloquial:
		return "Follow the speaker's register closely, including contractions, slang and sentence fragments."
	default:
		return "Use a neutral spoken register that suits most characters."
	}
}

func (p *OpenAIProvider) buildUserMessage(req TranslateRequest) string {
	hasContexts := false
	for _, ctx := range req.TextContexts {
		if ctx != "" {
			hasContexts = true
			break
		}
	}

	if !hasContexts {
		data, _ := json.Marshal(req.Texts)
		return string(data)
	}

	type item struct {
		Text    string `json:"text"`
		Context string `json:"context,omitempty"`
	}

	items := make([]item, len(req.Texts))
	for i, text := range req.Texts {
		items[i].Text = text
		if i < len(req.TextContexts) {
			items[i].Context = req.TextContexts[i]
		}
	}

	data, _ := json.Marshal(map[string][]item{"items": items})
	return string(data)
}

// parseResponse accepts {"translations": [...]}, an object whose only member
// is an array, or a bare array. Code fences around the JSON are ignored.
func (p *OpenAIProvider) parseResponse(content string, expectedCount int) ([]string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	raw := []byte(strings.TrimSpace(content))

	var items []json.RawMessage
	var obj map[string]json.RawMessage
	switch {
	case json.Unmarshal(raw, &obj) == nil:
		member, ok := obj["translations"]
		if !ok && len(obj) == 1 {
			for _, only := range obj {
				member = only
			}
		}
		if json.Unmarshal(member, &items) != nil {
			items = nil
		}
	case json.Unmarshal(raw, &items) == nil:
	}

	if items == nil {
		return nil, &subflow.ProviderError{Message: "invalid response format from OpenAI"}
	}
	if len(items) != expectedCount {
		return nil, &subflow.CountMismatchError{Expected: expectedCount, Got: len(items)}
	}

	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = decodeLine(item)
	}
	return lines, nil
}

// decodeLine reads a JSON string, falling back to the raw token for numbers
// and other scalars a model sometimes returns.
func decodeLine(item json.RawMessage) string {
	var s string
	if err := json.Unmarshal(item, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(item))
}

// isRetryableError classifies API status codes first and falls back to
// transport error text.
func isRetryableError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"timeout", "connection refused", "connection reset", "temporary", "eof"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

var _ AIProvider = (*OpenAIProvider)(nil)
