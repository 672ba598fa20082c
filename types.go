package subflow

import (
	"strings"
)

// TranslationStyle controls the tone and formality of translations.
type TranslationStyle string

const (
	// StyleFormal uses formal, polite language.
	StyleFormal TranslationStyle = "formal"
	// StyleNeutral uses a neutral tone suitable for most dialogue.
	StyleNeutral TranslationStyle = "neutral"
	// StyleCasual uses casual, conversational language.
	StyleCasual TranslationStyle = "casual"
	// StyleColloquial follows spoken register closely, including contractions and slang.
	StyleColloquial TranslationStyle = "colloquial"
)

// RenderMode selects how a replacement is written into a dialogue line.
type RenderMode string

const (
	// ModeReplace writes the replacement text only.
	ModeReplace RenderMode = "replace"
	// ModeDual writes the replacement above the original text.
	ModeDual RenderMode = "dual"
)

// ParseRenderMode converts a user supplied mode name.
func ParseRenderMode(s string) (RenderMode, error) {
	switch RenderMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeReplace, "":
		return ModeReplace, nil
	case ModeDual:
		return ModeDual, nil
	default:
		return "", &ProcessorError{Message: "unknown render mode " + s, ContentType: "ass"}
	}
}

// LineBreak is the ASS hard line break marker.
const LineBreak = `\N`

// PlaceholderText replaces the translation of a sentence whose provider call failed.
const PlaceholderText = "[translation error]"

// DialogueEntry is one timed subtitle cue.
type DialogueEntry struct {
	Position   int    // 0-based ordinal among dialogue entries
	Prefix     string // Non-text columns, verbatim, including the trailing comma
	Text       string // Original payload, surrounding whitespace stripped
	LineNumber int    // 1-based line in the source file
}

// Fields returns the individual non-text columns of the entry.
func (e DialogueEntry) Fields() []string {
	p := strings.TrimSuffix(e.Prefix, ",")
	if p == "" {
		return nil
	}
	return strings.Split(p, ",")
}

// SentenceUnit is a sentence merged from one or more consecutive dialogue entries.
type SentenceUnit struct {
	Start          int      // First position, inclusive
	End            int      // Last position, inclusive
	SourceText     string   // Space-joined original texts
	TranslatedText string   // Filled in after translation
	Lines          []string // Reflowed segments, one per position; gaps hold ""
	Gaps           []int    // Blank positions inside the range, left untouched
	Failed         bool     // Translation failed and TranslatedText is the placeholder
}

// LineCount is the number of positions the range spans.
func (u SentenceUnit) LineCount() int {
	return u.End - u.Start + 1
}

// TextLineCount is the number of positions that receive a reflowed segment.
func (u SentenceUnit) TextLineCount() int {
	return u.LineCount() - len(u.Gaps)
}

// Contains reports whether pos falls within the unit's range.
func (u SentenceUnit) Contains(pos int) bool {
	return pos >= u.Start && pos <= u.End
}

// IsGap reports whether pos is a blank position inside the range.
func (u SentenceUnit) IsGap(pos int) bool {
	for _, g := range u.Gaps {
		if g == pos {
			return true
		}
	}
	return false
}

// Spread lays segments over the non-gap positions of the range in order and
// returns one string per position, with "" at every gap.
func (u SentenceUnit) Spread(segments []string) []string {
	segments = FitLines(segments, u.TextLineCount())
	lines := make([]string, 0, u.LineCount())
	k := 0
	for pos := u.Start; pos <= u.End; pos++ {
		if u.IsGap(pos) || k >= len(segments) {
			lines = append(lines, "")
			continue
		}
		lines = append(lines, segments[k])
		k++
	}
	return lines
}

// MarkGaps records, for every unit, which positions in its range have blank
// text. texts is indexed by position, as returned by EntryTexts.
func MarkGaps(units []SentenceUnit, texts []string) {
	for i := range units {
		u := &units[i]
		u.Gaps = nil
		for pos := u.Start; pos <= u.End && pos < len(texts); pos++ {
			if pos >= 0 && strings.TrimSpace(texts[pos]) == "" {
				u.Gaps = append(u.Gaps, pos)
			}
		}
	}
}

// ProcessedContent is the result of a translation operation.
type ProcessedContent struct {
	Content         string         // Output track
	Units           []SentenceUnit // Sentence units with their reflowed lines
	TotalEntries    int            // Dialogue entries found
	TranslatedCount int            // Sentences translated by the provider
	CachedCount     int            // Sentences served from cache
	FailedCount     int            // Sentences replaced by the placeholder
	Skipped         []error        // Lines passed through because they could not be used
}

// RenderText builds the text column for a dialogue entry.
func RenderText(mode RenderMode, replacement, original string) string {
	replacement = escapeNewlines(replacement)
	if mode != ModeDual {
		return replacement
	}
	if replacement == "" {
		return original
	}
	return replacement + LineBreak + original
}

// escapeNewlines keeps a replacement on a single physical line.
func escapeNewlines(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.ReplaceAll(s, "\n", LineBreak)
}
