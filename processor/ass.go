package processor

import (
	"strings"

	"github.com/ZaguanLabs/subflow"
)

const (
	dialogueKeyword = "Dialogue:"
	formatKeyword   = "Format:"
	eventsSection   = "[events]"

	// defaultTextColumn is the number of columns ahead of Text in the
	// standard Events format (Layer through Effect).
	defaultTextColumn = 9
)

// ASSProcessor extracts and rewrites the dialogue text of Advanced SubStation
// Alpha tracks. Only Dialogue lines inside [Events] count as entries; every
// other line is carried through byte for byte.
type ASSProcessor struct {
	mode       subflow.RenderMode
	textColumn int
}

// ASSProcessorOption configures the ASS processor.
type ASSProcessorOption func(*ASSProcessor)

// WithRenderMode selects replace or dual output.
func WithRenderMode(mode subflow.RenderMode) ASSProcessorOption {
	return func(p *ASSProcessor) {
		p.mode = mode
	}
}

// WithTextColumn overrides the number of columns ahead of the text when the
// track has no Format line in [Events].
func WithTextColumn(n int) ASSProcessorOption {
	return func(p *ASSProcessor) {
		if n > 0 {
			p.textColumn = n
		}
	}
}

// NewASSProcessor creates a new ASS processor.
func NewASSProcessor(opts ...ASSProcessorOption) *ASSProcessor {
	p := &ASSProcessor{
		mode:       subflow.ModeReplace,
		textColumn: defaultTextColumn,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ContentType implements ContentProcessor.
func (p *ASSProcessor) ContentType() string {
	return "ass"
}

// Mode returns the configured render mode.
func (p *ASSProcessor) Mode() subflow.RenderMode {
	return p.mode
}

// assDialogue locates one entry inside the parsed track.
type assDialogue struct {
	line   int    // index into parsedASS.lines
	prefix string // columns ahead of the text, with the trailing comma
	text   string // stripped text
	eol    string // original line terminator
}

// parsedASS is the track split into physical lines plus the dialogue index.
type parsedASS struct {
	lines     []string // each line with its terminator
	dialogues []assDialogue
	issues    []error
}

// Issues implements subflow.IssueReporter.
func (d *parsedASS) Issues() []error {
	return d.issues
}

// Extract splits the track into lines and indexes its dialogue entries.
// Malformed Dialogue lines are recorded as issues and keep no position.
func (p *ASSProcessor) Extract(content string) (interface{}, []subflow.DialogueEntry, error) {
	doc := &parsedASS{lines: splitLines(content)}
	var entries []subflow.DialogueEntry

	inEvents := false
	textColumn := p.textColumn

	for i, raw := range doc.lines {
		body, eol := cutEOL(raw)
		trimmed := strings.TrimSpace(strings.TrimPrefix(body, "\ufeff"))

		if isSectionHeader(trimmed) {
			inEvents = strings.EqualFold(trimmed, eventsSection)
			continue
		}
		if !inEvents {
			continue
		}

		if strings.HasPrefix(trimmed, formatKeyword) {
			if n := formatTextColumn(trimmed); n > 0 {
				textColumn = n
			}
			continue
		}

		if !strings.HasPrefix(body, dialogueKeyword) {
			continue
		}

		parts := strings.SplitN(body, ",", textColumn+1)
		if len(parts) <= textColumn {
			doc.issues = append(doc.issues, &subflow.MalformedEntryError{
				LineNumber: i + 1,
				Columns:    len(parts),
				Expected:   textColumn,
			})
			continue
		}

		d := assDialogue{
			line:   i,
			prefix: strings.Join(parts[:textColumn], ",") + ",",
			text:   strings.TrimSpace(parts[textColumn]),
			eol:    eol,
		}
		entries = append(entries, subflow.DialogueEntry{
			Position:   len(doc.dialogues),
			Prefix:     d.prefix,
			Text:       d.text,
			LineNumber: i + 1,
		})
		doc.dialogues = append(doc.dialogues, d)
	}

	return doc, entries, nil
}

// Apply rewrites the text column of every dialogue whose position has a
// replacement. Other lines are returned unchanged and in order.
func (p *ASSProcessor) Apply(parsed interface{}, replacements map[int]string) (string, error) {
	doc, ok := parsed.(*parsedASS)
	if !ok {
		return "", &subflow.ProcessorError{
			Message:     "invalid parsed content type",
			ContentType: "ass",
		}
	}

	lines := make([]string, len(doc.lines))
	copy(lines, doc.lines)

	for pos, replacement := range replacements {
		if pos < 0 || pos >= len(doc.dialogues) {
			continue
		}
		d := doc.dialogues[pos]
		lines[d.line] = d.prefix + subflow.RenderText(p.mode, replacement, d.text) + d.eol
	}

	return strings.Join(lines, ""), nil
}

// formatTextColumn returns the index of the Text field in an Events Format
// line, or 0 when it has none.
func formatTextColumn(line string) int {
	fields := strings.Split(strings.TrimPrefix(line, formatKeyword), ",")
	for i, f := range fields {
		if strings.EqualFold(strings.TrimSpace(f), "text") {
			return i
		}
	}
	return 0
}

func isSectionHeader(line string) bool {
	return strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]")
}
