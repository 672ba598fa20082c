package subflow_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ZaguanLabs/subflow"
	"github.com/ZaguanLabs/subflow/cache"
	"github.com/ZaguanLabs/subflow/processor"
	"github.com/ZaguanLabs/subflow/provider"
)

// Integration tests using all real components

const trackHeader = "[Script Info]\n" +
	"Title: Integration\n" +
	"ScriptType: v4.00+\n" +
	"\n" +
	"[Events]\n" +
	"Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n"

const track = trackHeader +
	"Dialogue: 0,0:00:01.00,0:00:02.00,Default,,0,0,0,,Hello there,\n" +
	"Dialogue: 0,0:00:02.00,0:00:04.00,Default,,0,0,0,,{\\i1}how are you today.{\\i0}\n" +
	"Comment: 0,0:00:03.00,0:00:04.00,Default,,0,0,0,,timing note\n" +
	"Dialogue: 0,0:00:04.00,0:00:06.00,Default,Ann,0,0,0,,I am fine, thank you.\n"

const dialoguePrefix = "Dialogue: 0,0:00:0"

func TestIntegration_Replace(t *testing.T) {
	p := provider.NewMockProvider()
	translator := subflow.NewTranslator("ja_JP", p,
		subflow.WithCache(cache.NewInMemoryCache(3600)),
		subflow.WithProcessor(processor.NewASSProcessor()),
	)

	result, err := translator.ProcessASS(context.Background(), track)
	if err != nil {
		t.Fatalf("ProcessASS failed: %v", err)
	}

	want := trackHeader +
		"Dialogue: 0,0:00:01.00,0:00:02.00,Default,,0,0,0,,やあ、\n" +
		"Dialogue: 0,0:00:02.00,0:00:04.00,Default,,0,0,0,,今日は元気？\n" +
		"Comment: 0,0:00:03.00,0:00:04.00,Default,,0,0,0,,timing note\n" +
		"Dialogue: 0,0:00:04.00,0:00:06.00,Default,Ann,0,0,0,,元気です、ありがとう。\n"
	if result.Content != want {
		t.Errorf("Content mismatch:\ngot:\n%s\nwant:\n%s", result.Content, want)
	}

	if result.TotalEntries != 3 {
		t.Errorf("Expected 3 entries, got %d", result.TotalEntries)
	}
	if len(result.Units) != 2 {
		t.Fatalf("Expected 2 sentences, got %d", len(result.Units))
	}
	if u := result.Units[0]; u.Start != 0 || u.End != 1 {
		t.Errorf("Expected first sentence to span 0-1, got %d-%d", u.Start, u.End)
	}
	if result.TranslatedCount != 2 {
		t.Errorf("Expected TranslatedCount 2, got %d", result.TranslatedCount)
	}
}

func TestIntegration_Dual(t *testing.T) {
	translator := subflow.NewTranslator("ja_JP", provider.NewMockProvider(),
		subflow.WithProcessor(processor.NewASSProcessor(processor.WithRenderMode(subflow.ModeDual))),
	)

	result, err := translator.ProcessASS(context.Background(), track)
	if err != nil {
		t.Fatalf("ProcessASS failed: %v", err)
	}

	for _, want := range []string{
		",,やあ、\\NHello there,\n",
		",,今日は元気？\\N{\\i1}how are you today.{\\i0}\n",
		",,元気です、ありがとう。\\NI am fine, thank you.\n",
	} {
		if !strings.Contains(result.Content, want) {
			t.Errorf("Expected %q in result, got:\n%s", want, result.Content)
		}
	}
}

func TestIntegration_CacheHit(t *testing.T) {
	p := provider.NewMockProvider()
	c := cache.NewInMemoryCache(3600)
	translator := subflow.NewTranslator("ja_JP", p,
		subflow.WithCache(c),
		subflow.WithProcessor(processor.NewASSProcessor()),
	)

	first, err := translator.ProcessASS(context.Background(), track)
	if err != nil {
		t.Fatalf("first ProcessASS failed: %v", err)
	}
	calls := p.CallCount()

	second, err := translator.ProcessASS(context.Background(), track)
	if err != nil {
		t.Fatalf("second ProcessASS failed: %v", err)
	}

	if p.CallCount() != calls {
		t.Errorf("Expected no provider calls on second run, got %d", p.CallCount()-calls)
	}
	if second.CachedCount != 2 || second.TranslatedCount != 0 {
		t.Errorf("Expected 2 cached and 0 translated, got %d and %d", second.CachedCount, second.TranslatedCount)
	}
	if first.Content != second.Content {
		t.Error("Cached run should produce identical output")
	}
}

func TestIntegration_ProviderFailure(t *testing.T) {
	p := provider.NewMockProvider()
	p.Failures["Hello there, how are you today."] = true
	translator := subflow.NewTranslator("ja_JP", p,
		subflow.WithProcessor(processor.NewASSProcessor()),
	)

	result, err := translator.ProcessASS(context.Background(), track)
	if err != nil {
		t.Fatalf("ProcessASS should not fail on provider errors: %v", err)
	}

	if result.FailedCount != 1 {
		t.Errorf("Expected FailedCount 1, got %d", result.FailedCount)
	}
	if !strings.Contains(result.Content, ",,"+subflow.PlaceholderText+"\n") {
		t.Errorf("Expected placeholder in result, got:\n%s", result.Content)
	}
	if !strings.Contains(result.Content, ",,元気です、ありがとう。\n") {
		t.Errorf("Other sentences should still translate, got:\n%s", result.Content)
	}
	if strings.Count(result.Content, "\n") != strings.Count(track, "\n") {
		t.Error("Line count changed")
	}
}

func TestIntegration_MalformedLinePassedThrough(t *testing.T) {
	malformed := "Dialogue: 0,0:00:02.50,Default,broken\n"
	input := trackHeader +
		"Dialogue: 0,0:00:01.00,0:00:02.00,Default,,0,0,0,,Fine.\n" +
		malformed +
		"Dialogue: 0,0:00:04.00,0:00:06.00,Default,,0,0,0,,I am fine, thank you.\n"

	translator := subflow.NewTranslator("ja_JP", provider.NewMockProvider(),
		subflow.WithProcessor(processor.NewASSProcessor()),
	)

	result, err := translator.ProcessASS(context.Background(), input)
	if err != nil {
		t.Fatalf("ProcessASS failed: %v", err)
	}

	if result.TotalEntries != 2 {
		t.Errorf("Malformed line should not be counted, got %d entries", result.TotalEntries)
	}
	if !strings.Contains(result.Content, malformed) {
		t.Errorf("Malformed line should pass through unchanged, got:\n%s", result.Content)
	}
	if !strings.Contains(result.Content, ",,元気です、ありがとう。\n") {
		t.Errorf("Entry after the malformed line lost its alignment, got:\n%s", result.Content)
	}

	var malformedErr *subflow.MalformedEntryError
	if len(result.Skipped) != 1 || !errors.As(result.Skipped[0], &malformedErr) {
		t.Fatalf("Expected one MalformedEntryError, got %v", result.Skipped)
	}
	if malformedErr.LineNumber != 8 {
		t.Errorf("Expected malformed line 8, got %d", malformedErr.LineNumber)
	}
}

func TestIntegration_LineCountPreserved(t *testing.T) {
	p := provider.NewMockProvider()
	p.Translations["One, two, three, four, five."] = "一、二、三、四、五、六、七。"
	input := trackHeader +
		"Dialogue: 0,0:00:01.00,0:00:02.00,Default,,0,0,0,,One,\n" +
		"Dialogue: 0,0:00:02.00,0:00:03.00,Default,,0,0,0,,two,\n" +
		"Dialogue: 0,0:00:03.00,0:00:04.00,Default,,0,0,0,,three, four, five.\n"

	translator := subflow.NewTranslator("ja_JP", p,
		subflow.WithProcessor(processor.NewASSProcessor()),
	)

	result, err := translator.ProcessASS(context.Background(), input)
	if err != nil {
		t.Fatalf("ProcessASS failed: %v", err)
	}

	var texts []string
	for _, line := range strings.Split(result.Content, "\n") {
		if strings.HasPrefix(line, dialoguePrefix) {
			texts = append(texts, line[strings.LastIndex(line, ",,")+2:])
		}
	}
	if len(texts) != 3 {
		t.Fatalf("Expected 3 dialogue lines, got %d", len(texts))
	}
	if strings.Join(texts, "") != "一、二、三、四、五、六、七。" {
		t.Errorf("Split lines do not rebuild the translation: %q", texts)
	}
}

func TestIntegration_TagOnlyCueUntouched(t *testing.T) {
	sign := "Dialogue: 0,0:00:02.00,0:00:03.00,Sign,,0,0,0,,{\\an8\\pos(10,10)}\n"

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name: "between sentences",
			input: trackHeader +
				"Dialogue: 0,0:00:01.00,0:00:02.00,Default,,0,0,0,,Fine.\n" +
				sign +
				"Dialogue: 0,0:00:03.00,0:00:04.00,Default,,0,0,0,,Hello\n",
			want: []string{",,元気。\n", sign, ",,こんにちは\n"},
		},
		{
			name: "inside a sentence",
			input: trackHeader +
				"Dialogue: 0,0:00:01.00,0:00:02.00,Default,,0,0,0,,Hello there,\n" +
				sign +
				"Dialogue: 0,0:00:03.00,0:00:04.00,Default,,0,0,0,,how are you today.\n",
			want: []string{",,やあ、\n", sign, ",,今日は元気？\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := provider.NewMockProvider()
			p.Translations["Fine."] = "元気。"
			translator := subflow.NewTranslator("ja_JP", p,
				subflow.WithProcessor(processor.NewASSProcessor()),
			)

			result, err := translator.ProcessASS(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("ProcessASS failed: %v", err)
			}

			var lines []string
			for _, line := range strings.SplitAfter(result.Content, "\n") {
				if strings.HasPrefix(line, dialoguePrefix) {
					lines = append(lines, line)
				}
			}
			if len(lines) != len(tt.want) {
				t.Fatalf("Expected %d dialogue lines, got %d:\n%s", len(tt.want), len(lines), result.Content)
			}
			for i, want := range tt.want {
				if !strings.HasSuffix(lines[i], want) {
					t.Errorf("Line %d = %q, want suffix %q", i, lines[i], want)
				}
			}
		})
	}
}

func TestIntegration_SourceEqualsTarget(t *testing.T) {
	p := provider.NewMockProvider()
	translator := subflow.NewTranslator("en_GB", p,
		subflow.WithSourceLang("en"),
		subflow.WithProcessor(processor.NewASSProcessor()),
	)

	result, err := translator.ProcessASS(context.Background(), track)
	if err != nil {
		t.Fatalf("ProcessASS failed: %v", err)
	}

	if result.Content != track {
		t.Error("Content should be unchanged when source equals target")
	}
	if p.CallCount() != 0 {
		t.Errorf("Expected no provider calls, got %d", p.CallCount())
	}
}

func TestIntegration_NoDialogue(t *testing.T) {
	translator := subflow.NewTranslator("ja_JP", provider.NewMockProvider(),
		subflow.WithProcessor(processor.NewASSProcessor()),
	)

	result, err := translator.ProcessASS(context.Background(), trackHeader)
	if err != nil {
		t.Fatalf("ProcessASS failed: %v", err)
	}
	if result.Content != trackHeader || result.TotalEntries != 0 {
		t.Errorf("Expected unchanged content and no entries, got %+v", result)
	}
}

func TestIntegration_RetryableProvider(t *testing.T) {
	inner := &failingMockProvider{failCount: 2}
	retryable := subflow.NewRetryableProvider(inner, subflow.RetryConfig{
		MaxRetries: 3,
		BaseDelay:  1, // 1 nanosecond for fast tests
		MaxDelay:   10,
	})

	translator := subflow.NewTranslator("ja_JP", retryable,
		subflow.WithProcessor(processor.NewASSProcessor()),
	)

	input := trackHeader + "Dialogue: 0,0:00:01.00,0:00:02.00,Default,,0,0,0,,Fine.\n"
	result, err := translator.ProcessASS(context.Background(), input)
	if err != nil {
		t.Fatalf("ProcessASS failed after retries: %v", err)
	}

	if !strings.Contains(result.Content, ",,翻訳済み\n") {
		t.Errorf("Expected translated content, got: %s", result.Content)
	}
	if inner.callCount != 3 {
		t.Errorf("Expected 3 calls (2 failures + 1 success), got %d", inner.callCount)
	}
}

// Helper: failing provider for retry tests
type failingMockProvider struct {
	failCount int
	callCount int
}

func (p *failingMockProvider) Translate(ctx context.Context, req subflow.TranslateRequest) ([]string, error) {
	p.callCount++
	if p.callCount <= p.failCount {
		return nil, &subflow.ProviderError{Message: "temporary failure", Retryable: true}
	}
	results := make([]string, len(req.Texts))
	for i := range req.Texts {
		results[i] = "翻訳済み"
	}
	return results, nil
}
