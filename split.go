package subflow

import (
	"strings"
	"unicode/utf8"
)

// clauseBreaks are the runes a clause may end with.
const clauseBreaks = "。．！？!?、,，"

// terminalMarks close an output slot early regardless of its length.
const terminalMarks = "。．！？!?"

// SplitClauses splits text immediately after sentence-ending or comma-class
// punctuation. Whitespace-only clauses are dropped; the rest keep their
// leading whitespace so callers can rejoin them faithfully.
func SplitClauses(text string) []string {
	var clauses []string
	begin := 0
	for i, r := range text {
		if strings.ContainsRune(clauseBreaks, r) {
			end := i + utf8.RuneLen(r)
			if strings.TrimSpace(text[begin:end]) != "" {
				clauses = append(clauses, text[begin:end])
			}
			begin = end
		}
	}
	if strings.TrimSpace(text[begin:]) != "" {
		clauses = append(clauses, text[begin:])
	}
	return clauses
}

// SplitLines partitions translated text into exactly lineCount segments.
//
// When the text has no more clauses than lines, clauses are emitted in order
// and padded with empty strings. Otherwise clauses are packed greedily into
// slots of roughly total/lineCount runes; a slot closes once it reaches that
// length or its last clause ends a sentence, and the final slot takes
// whatever remains. A lineCount below one is treated as one.
func SplitLines(text string, lineCount int) []string {
	if lineCount < 1 {
		lineCount = 1
	}

	clauses := SplitClauses(text)
	if len(clauses) <= lineCount {
		result := make([]string, 0, lineCount)
		for _, c := range clauses {
			result = append(result, strings.TrimSpace(c))
		}
		return FitLines(result, lineCount)
	}

	total := 0
	for _, c := range clauses {
		total += runeLen(c)
	}
	target := total / lineCount

	result := make([]string, 0, lineCount)
	var current strings.Builder
	currentLen := 0

	for _, clause := range clauses {
		current.WriteString(clause)
		if len(result) >= lineCount-1 {
			continue
		}
		currentLen += runeLen(clause)
		if currentLen >= target || endsWithAny(clause, terminalMarks) {
			result = append(result, strings.TrimSpace(current.String()))
			current.Reset()
			currentLen = 0
		}
	}
	if current.Len() > 0 {
		result = append(result, strings.TrimSpace(current.String()))
	}

	return FitLines(result, lineCount)
}

// FitLines pads lines with empty strings, or folds trailing lines into their
// predecessor, until exactly n remain.
func FitLines(lines []string, n int) []string {
	if n < 1 {
		n = 1
	}
	out := make([]string, len(lines), max(len(lines), n))
	copy(out, lines)
	for len(out) < n {
		out = append(out, "")
	}
	for len(out) > n {
		last := len(out) - 1
		out[last-1] = joinSegments(out[last-1], out[last])
		out = out[:last]
	}
	return out
}

// joinSegments concatenates two segments, keeping a space between words of
// space-delimited scripts.
func joinSegments(a, b string) string {
	if a == "" || b == "" {
		return a + b
	}
	ra, _ := utf8.DecodeLastRuneInString(a)
	rb, _ := utf8.DecodeRuneInString(b)
	if ra < utf8.RuneSelf && rb < utf8.RuneSelf {
		return a + " " + b
	}
	return a + b
}

// runeLen counts the characters of a clause, ignoring surrounding whitespace.
func runeLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

func endsWithAny(s, marks string) bool {
	r, _ := utf8.DecodeLastRuneInString(strings.TrimSpace(s))
	return r != utf8.RuneError && strings.ContainsRune(marks, r)
}
