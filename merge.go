package subflow

import (
	"regexp"
	"strings"
)

// sentenceEnd matches a line that closes a sentence.
var sentenceEnd = regexp.MustCompile(`\.\s*$`)

// MergeSentences groups consecutive dialogue texts into sentence units.
//
// texts[i] is the text of the entry at position i. A unit starts at its first
// non-blank line and closes on a line ending with a period; a trailing
// fragment without one still becomes a unit ending at its last non-blank
// line. Blank entries never open a unit. Blanks before or between units
// belong to none, and blanks inside a unit are listed in its Gaps, so no
// blank entry ever receives a reflowed segment.
func MergeSentences(texts []string) []SentenceUnit {
	var units []SentenceUnit
	var current strings.Builder
	var gaps, pending []int
	start, lastText := 0, 0

	for i, line := range texts {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			if current.Len() > 0 {
				pending = append(pending, i)
			}
			continue
		}

		if current.Len() == 0 {
			start = i
		} else {
			current.WriteByte(' ')
			gaps = append(gaps, pending...)
		}
		pending = nil
		current.WriteString(stripped)
		lastText = i

		if sentenceEnd.MatchString(stripped) {
			units = append(units, SentenceUnit{
				Start:      start,
				End:        i,
				SourceText: current.String(),
				Gaps:       gaps,
			})
			current.Reset()
			gaps = nil
		}
	}

	if current.Len() > 0 {
		units = append(units, SentenceUnit{
			Start:      start,
			End:        lastText,
			SourceText: current.String(),
			Gaps:       gaps,
		})
	}

	return units
}

// EntryTexts returns the text of each entry, indexed by position.
// With plain set, markup is stripped first (see PlainText).
func EntryTexts(entries []DialogueEntry, plain bool) []string {
	texts := make([]string, len(entries))
	for _, e := range entries {
		if e.Position < 0 || e.Position >= len(texts) {
			continue
		}
		if plain {
			texts[e.Position] = PlainText(e.Text)
		} else {
			texts[e.Position] = e.Text
		}
	}
	return texts
}
