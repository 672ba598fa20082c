package subflow

import (
	"encoding/json"
	"fmt"
	"io"
)

// SentenceRecord is one entry of the sentence file written after merging.
// Line numbers are 1-based and inclusive. BlankLines lists the lines inside
// the range that carry no text.
type SentenceRecord struct {
	StartLine  int    `json:"start_line"`
	EndLine    int    `json:"end_line"`
	Text       string `json:"text"`
	BlankLines []int  `json:"blank_lines,omitempty"`
}

// TranslatedRecord is one entry of the translated file. Lines holds one
// segment per original line.
type TranslatedRecord struct {
	StartLine int      `json:"start_line"`
	EndLine   int      `json:"end_line"`
	Lines     []string `json:"ja"`
}

// SentenceRecords converts units to their 1-based interchange form.
func SentenceRecords(units []SentenceUnit) []SentenceRecord {
	records := make([]SentenceRecord, len(units))
	for i, u := range units {
		records[i] = SentenceRecord{
			StartLine: u.Start + 1,
			EndLine:   u.End + 1,
			Text:      u.SourceText,
		}
		for _, pos := range u.Gaps {
			records[i].BlankLines = append(records[i].BlankLines, pos+1)
		}
	}
	return records
}

// TranslatedRecords converts translated units to their 1-based interchange form.
func TranslatedRecords(units []SentenceUnit) []TranslatedRecord {
	records := make([]TranslatedRecord, len(units))
	for i, u := range units {
		records[i] = TranslatedRecord{
			StartLine: u.Start + 1,
			EndLine:   u.End + 1,
			Lines:     FitLines(u.Lines, u.LineCount()),
		}
	}
	return records
}

// UnitsFromSentences converts sentence records back to units.
func UnitsFromSentences(records []SentenceRecord) ([]SentenceUnit, error) {
	units := make([]SentenceUnit, len(records))
	for i, r := range records {
		if err := checkRange(i, r.StartLine, r.EndLine); err != nil {
			return nil, err
		}
		units[i] = SentenceUnit{
			Start:      r.StartLine - 1,
			End:        r.EndLine - 1,
			SourceText: r.Text,
		}
		for _, line := range r.BlankLines {
			if line <= r.StartLine || line >= r.EndLine {
				return nil, &ProcessorError{
					Message:     fmt.Sprintf("record %d has blank line %d outside %d-%d", i, line, r.StartLine, r.EndLine),
					ContentType: "json",
				}
			}
			units[i].Gaps = append(units[i].Gaps, line-1)
		}
	}
	return units, nil
}

// UnitsFromTranslated converts translated records back to units. Segment
// lists of the wrong length are padded or folded to the range's line count.
func UnitsFromTranslated(records []TranslatedRecord) ([]SentenceUnit, error) {
	units := make([]SentenceUnit, len(records))
	for i, r := range records {
		if err := checkRange(i, r.StartLine, r.EndLine); err != nil {
			return nil, err
		}
		u := SentenceUnit{
			Start: r.StartLine - 1,
			End:   r.EndLine - 1,
		}
		u.Lines = FitLines(r.Lines, u.LineCount())
		units[i] = u
	}
	return units, nil
}

func checkRange(index, start, end int) error {
	if start < 1 || end < start {
		return &ProcessorError{
			Message:     fmt.Sprintf("record %d has invalid line range %d-%d", index, start, end),
			ContentType: "json",
		}
	}
	return nil
}

// WriteJSON writes v as indented JSON without HTML escaping, so CJK text and
// markup stay readable.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

// ReadSentences decodes a sentence file.
func ReadSentences(r io.Reader) ([]SentenceUnit, error) {
	var records []SentenceRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding sentences: %w", err)
	}
	return UnitsFromSentences(records)
}

// ReadTranslated decodes a translated file.
func ReadTranslated(r io.Reader) ([]SentenceUnit, error) {
	var records []TranslatedRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding translations: %w", err)
	}
	return UnitsFromTranslated(records)
}
