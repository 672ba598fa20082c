package processor

import (
	"strings"

	"github.com/ZaguanLabs/subflow"
)

// TextProcessor handles plain dialogue text files: one entry per line, as
// written by `subflow extract`. Blank lines are entries too, so positions
// match line numbers minus one.
type TextProcessor struct {
	mode subflow.RenderMode
}

// TextProcessorOption configures the text processor.
type TextProcessorOption func(*TextProcessor)

// WithTextRenderMode selects replace or dual output.
func WithTextRenderMode(mode subflow.RenderMode) TextProcessorOption {
	return func(p *TextProcessor) {
		p.mode = mode
	}
}

// NewTextProcessor creates a new plain text processor.
func NewTextProcessor(opts ...TextProcessorOption) *TextProcessor {
	p := &TextProcessor{mode: subflow.ModeReplace}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ContentType implements ContentProcessor.
func (p *TextProcessor) ContentType() string {
	return "text"
}

type parsedText struct {
	lines []string
}

// Extract returns one entry per physical line.
func (p *TextProcessor) Extract(content string) (interface{}, []subflow.DialogueEntry, error) {
	doc := &parsedText{lines: splitLines(content)}
	entries := make([]subflow.DialogueEntry, len(doc.lines))
	for i, raw := range doc.lines {
		body, _ := cutEOL(raw)
		entries[i] = subflow.DialogueEntry{
			Position:   i,
			Text:       strings.TrimSpace(body),
			LineNumber: i + 1,
		}
	}
	return doc, entries, nil
}

// Apply replaces the mapped lines, keeping their terminators.
func (p *TextProcessor) Apply(parsed interface{}, replacements map[int]string) (string, error) {
	doc, ok := parsed.(*parsedText)
	if !ok {
		return "", &subflow.ProcessorError{
			Message:     "invalid parsed content type",
			ContentType: "text",
		}
	}

	lines := make([]string, len(doc.lines))
	copy(lines, doc.lines)

	for pos, replacement := range replacements {
		if pos < 0 || pos >= len(lines) {
			continue
		}
		body, eol := cutEOL(lines[pos])
		lines[pos] = subflow.RenderText(p.mode, replacement, strings.TrimSpace(body)) + eol
	}

	return strings.Join(lines, ""), nil
}

// ExtractedText renders entries as a plain text file, one text per line.
func ExtractedText(entries []subflow.DialogueEntry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Text)
		b.WriteByte('\n')
	}
	return b.String()
}
