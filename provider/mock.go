package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/ZaguanLabs/subflow"
)

// MockProvider is a mock AI provider for testing. It is safe for use by
// concurrent workers.
type MockProvider struct {
	Translations map[string]string // Map of source text to translation
	Failures     map[string]bool   // Source texts that fail with a ProviderError

	mu          sync.Mutex
	callCount   int
	lastRequest *TranslateRequest
}

// NewMockProvider creates a new mock provider with a few subtitle lines.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Translations: map[string]string{
			"Hello":                           "こんにちは",
			"Hello there, how are you today.": "やあ、今日は元気？",
			"I am fine, thank you.":           "元気です、ありがとう。",
		},
		Failures: map[string]bool{},
	}
}

// Translate returns mock translations. Unknown texts come back bracketed.
func (m *MockProvider) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	m.mu.Lock()
	m.callCount++
	m.lastRequest = &req
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]string, len(req.Texts))
	for i, text := range req.Texts {
		if m.Failures[text] {
			return nil, &subflow.ProviderError{Message: fmt.Sprintf("mock failure for %q", text)}
		}
		if translation, ok := m.Translations[text]; ok {
			results[i] = translation
		} else {
			results[i] = fmt.Sprintf("[%s]", text)
		}
	}

	return results, nil
}

// CallCount returns the number of Translate calls.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastRequest returns the most recent request, or nil.
func (m *MockProvider) LastRequest() *TranslateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRequest
}

// Reset resets the call count and last request.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.lastRequest = nil
}

var _ AIProvider = (*MockProvider)(nil)
