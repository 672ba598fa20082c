package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZaguanLabs/subflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		output     string
		mode       string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "run [track.ass]",
		Short: "Extract, merge, translate, split and reinject in one pass",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			renderMode, err := ctx.renderMode(mode)
			if err != nil {
				return err
			}

			input, name, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			translator, closeCache, err := ctx.newTranslator(renderMode)
			if err != nil {
				return err
			}
			defer closeCache()

			contentType := processorFor(name, renderMode).ContentType()
			ctx.progress("Translating %s to %s...", name, translator.TargetLang())

			start := time.Now()
			result, err := translator.Process(cmd.Context(), input, contentType)
			if err != nil {
				return fmt.Errorf("translation failed: %w", err)
			}
			elapsed := time.Since(start)

			if jsonOutput {
				return writeRunJSON(cmd, output, result, elapsed)
			}

			if err := writeOutput(cmd.Context(), output, []byte(result.Content), cmd.OutOrStdout()); err != nil {
				return err
			}

			ctx.logger.Info("track translated",
				"input", name,
				"entries", result.TotalEntries,
				"sentences", len(result.Units),
				"translated", result.TranslatedCount,
				"cached", result.CachedCount,
				"failed", result.FailedCount,
				"skipped", len(result.Skipped),
				"elapsed", elapsed.Round(time.Millisecond))

			if !ctx.flags.quiet {
				printRunStats(ctx.stderr, result, elapsed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&mode, "mode", "", "Output mode (replace, dual)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output result as JSON")
	return cmd
}

func printRunStats(w io.Writer, result *subflow.ProcessedContent, elapsed time.Duration) {
	fmt.Fprintf(w, "\nDone in %v\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "  Dialogue lines: %d\n", result.TotalEntries)
	fmt.Fprintf(w, "  Sentences:      %d\n", len(result.Units))
	fmt.Fprintf(w, "  Translated:     %d\n", result.TranslatedCount)
	fmt.Fprintf(w, "  From cache:     %d\n", result.CachedCount)
	fmt.Fprintf(w, "  Failed:         %d\n", result.FailedCount)
	if len(result.Skipped) > 0 {
		fmt.Fprintf(w, "  Passed through: %d\n", len(result.Skipped))
	}
}

// RunOutput is the JSON form of a run result.
type RunOutput struct {
	Content         string   `json:"content"`
	TotalEntries    int      `json:"total_entries"`
	Sentences       int      `json:"sentences"`
	TranslatedCount int      `json:"translated_count"`
	CachedCount     int      `json:"cached_count"`
	FailedCount     int      `json:"failed_count"`
	Skipped         []string `json:"skipped,omitempty"`
	ElapsedMs       int64    `json:"elapsed_ms"`
}

func writeRunJSON(cmd *cobra.Command, path string, result *subflow.ProcessedContent, elapsed time.Duration) error {
	out := RunOutput{
		Content:         result.Content,
		TotalEntries:    result.TotalEntries,
		Sentences:       len(result.Units),
		TranslatedCount: result.TranslatedCount,
		CachedCount:     result.CachedCount,
		FailedCount:     result.FailedCount,
		ElapsedMs:       elapsed.Milliseconds(),
	}
	for _, s := range result.Skipped {
		out.Skipped = append(out.Skipped, s.Error())
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return writeOutput(cmd.Context(), path, append(data, '\n'), cmd.OutOrStdout())
}
