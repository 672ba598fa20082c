// Package processor provides subtitle format implementations of
// subflow.ContentProcessor.
package processor

import (
	"path/filepath"
	"strings"

	"github.com/ZaguanLabs/subflow"
)

// ContentProcessor is an alias to the main package interface.
type ContentProcessor = subflow.ContentProcessor

// DialogueEntry is an alias to the main package type.
type DialogueEntry = subflow.DialogueEntry

// ForPath picks a processor from a file extension: ".ass" and ".ssa" get the
// ASS processor, anything else is treated as one dialogue text per line.
func ForPath(path string, mode subflow.RenderMode) ContentProcessor {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ass", ".ssa":
		return NewASSProcessor(WithRenderMode(mode))
	default:
		return NewTextProcessor(WithTextRenderMode(mode))
	}
}
