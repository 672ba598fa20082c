package subflow

import "fmt"

// TranslationError is the base error type for translation failures.
type TranslationError struct {
	Message string
	Cause   error
}

func (e *TranslationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *TranslationError) Unwrap() error {
	return e.Cause
}

// ProviderError indicates a translation provider failure (network, quota, parse).
type ProviderError struct {
	Message   string
	Cause     error
	Retryable bool // Whether the operation can be retried
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("provider error: %s", e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// CacheError indicates a cache operation failure.
type CacheError struct {
	Message string
	Cause   error
}

func (e *CacheError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cache error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("cache error: %s", e.Message)
}

func (e *CacheError) Unwrap() error {
	return e.Cause
}

// ProcessorError indicates a content processing failure.
type ProcessorError struct {
	Message     string
	Cause       error
	ContentType string // The type of content that failed to process
}

func (e *ProcessorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("processor error (%s): %s: %v", e.ContentType, e.Message, e.Cause)
	}
	return fmt.Sprintf("processor error (%s): %s", e.ContentType, e.Message)
}

func (e *ProcessorError) Unwrap() error {
	return e.Cause
}

// MalformedEntryError marks a dialogue-like line without the expected column
// count. The line is passed through unchanged and gets no position.
type MalformedEntryError struct {
	LineNumber int // 1-based line in the source file
	Columns    int // Comma-delimited columns found
	Expected   int // Columns required before the text
}

func (e *MalformedEntryError) Error() string {
	return fmt.Sprintf("malformed dialogue at line %d: %d columns, need more than %d", e.LineNumber, e.Columns, e.Expected)
}

// RangeMismatchError indicates a line range that references positions beyond
// the known dialogue entry count.
type RangeMismatchError struct {
	Start   int // First position of the range
	End     int // Last position of the range
	Entries int // Known dialogue entries
}

func (e *RangeMismatchError) Error() string {
	return fmt.Sprintf("line range %d-%d exceeds %d dialogue entries", e.Start+1, e.End+1, e.Entries)
}

// CountMismatchError indicates the provider returned a different number of translations than expected.
type CountMismatchError struct {
	Expected int
	Got      int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("translation count mismatch: expected %d, got %d", e.Expected, e.Got)
}
