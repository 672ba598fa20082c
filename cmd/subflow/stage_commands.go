package main

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZaguanLabs/subflow"
	"github.com/ZaguanLabs/subflow/processor"
)

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "extract [track.ass]",
		Short: "Write the dialogue text of a track, one line per cue",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, name, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			parsed, entries, err := processor.NewASSProcessor().Extract(input)
			if err != nil {
				return fmt.Errorf("extracting dialogue: %w", err)
			}
			logIssues(ctx, parsed)

			if err := writeOutput(cmd.Context(), output, []byte(processor.ExtractedText(entries)), cmd.OutOrStdout()); err != nil {
				return err
			}

			ctx.logger.Info("dialogue extracted", "input", name, "entries", len(entries))
			ctx.progress("Extracted %d dialogue lines from %s to %s", len(entries), name, displayName(output))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "merge [lines.txt]",
		Short: "Merge dialogue lines into sentences with their line ranges",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, name, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			_, entries, err := processor.NewTextProcessor().Extract(input)
			if err != nil {
				return fmt.Errorf("reading lines: %w", err)
			}

			units := subflow.MergeSentences(subflow.EntryTexts(entries, ctx.config.Output.StripMarkup))

			var buf bytes.Buffer
			if err := subflow.WriteJSON(&buf, subflow.SentenceRecords(units)); err != nil {
				return err
			}
			if err := writeOutput(cmd.Context(), output, buf.Bytes(), cmd.OutOrStdout()); err != nil {
				return err
			}

			ctx.logger.Info("sentences merged", "input", name, "entries", len(entries), "sentences", len(units))
			ctx.progress("Merged %d lines into %d sentences and saved to %s", len(entries), len(units), displayName(output))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "translate [sentences.json]",
		Short: "Translate merged sentences and split each over its original lines",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, name, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			units, err := subflow.ReadSentences(bytes.NewReader([]byte(input)))
			if err != nil {
				return err
			}

			translator, closeCache, err := ctx.newTranslator(ctx.config.RenderMode())
			if err != nil {
				return err
			}
			defer closeCache()

			start := time.Now()
			var stats subflow.TranslateStats
			if translator.IsSourceLang() {
				ctx.logger.Info("target matches source language, copying sentences", "lang", translator.TargetLang())
				for i := range units {
					u := &units[i]
					u.TranslatedText = u.SourceText
					u.Lines = u.Spread(subflow.SplitLines(u.SourceText, u.TextLineCount()))
				}
			} else {
				ctx.progress("Translating %d sentences from %s to %s...", len(units), name, translator.TargetLang())
				stats = translator.TranslateUnits(cmd.Context(), units)
			}

			var buf bytes.Buffer
			if err := subflow.WriteJSON(&buf, subflow.TranslatedRecords(units)); err != nil {
				return err
			}
			if err := writeOutput(cmd.Context(), output, buf.Bytes(), cmd.OutOrStdout()); err != nil {
				return err
			}

			ctx.logger.Info("sentences translated",
				"sentences", len(units),
				"translated", stats.Translated,
				"cached", stats.Cached,
				"failed", stats.Failed,
				"elapsed", time.Since(start).Round(time.Millisecond))
			ctx.progress("Translated %d entries and saved to %s (cached %d, failed %d)",
				len(units), displayName(output), stats.Cached, stats.Failed)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func newInjectCommand(ctx *commandContext) *cobra.Command {
	var (
		output       string
		translations string
		mode         string
	)

	cmd := &cobra.Command{
		Use:   "inject [track.ass] --translations translated.json",
		Short: "Write translated lines back into a track",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			renderMode, err := ctx.renderMode(mode)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(translations) // #nosec G304 - CLI tool reads user-specified files
			if err != nil {
				return fmt.Errorf("reading translations: %w", err)
			}
			units, err := subflow.ReadTranslated(bytes.NewReader(data))
			if err != nil {
				return err
			}

			input, name, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			proc := processorFor(name, renderMode)
			parsed, entries, err := proc.Extract(input)
			if err != nil {
				return fmt.Errorf("extracting dialogue: %w", err)
			}
			logIssues(ctx, parsed)

			subflow.MarkGaps(units, subflow.EntryTexts(entries, ctx.config.Output.StripMarkup))
			replacements, mismatches := subflow.Replacements(units, len(entries))
			for _, m := range mismatches {
				ctx.logger.Warn("sentence range skipped", "error", m)
			}

			result, err := proc.Apply(parsed, replacements)
			if err != nil {
				return err
			}
			if err := writeOutput(cmd.Context(), output, []byte(result), cmd.OutOrStdout()); err != nil {
				return err
			}

			ctx.logger.Info("translations injected",
				"input", name,
				"entries", len(entries),
				"replaced", len(replacements),
				"skipped_ranges", len(mismatches))
			ctx.progress("Replaced %d of %d dialogue lines and saved to %s", len(replacements), len(entries), displayName(output))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVarP(&translations, "translations", "t", "", "Translated JSON file")
	cmd.Flags().StringVar(&mode, "mode", "", "Output mode (replace, dual)")
	_ = cmd.MarkFlagRequired("translations")
	return cmd
}

// processorFor picks the processor for an input name. Piped input is
// treated as an ASS track.
func processorFor(name string, mode subflow.RenderMode) processor.ContentProcessor {
	if name == "stdin" {
		return processor.NewASSProcessor(processor.WithRenderMode(mode))
	}
	return processor.ForPath(name, mode)
}

// logIssues reports lines a processor passed through unchanged.
func logIssues(ctx *commandContext, parsed interface{}) {
	r, ok := parsed.(subflow.IssueReporter)
	if !ok {
		return
	}
	for _, issue := range r.Issues() {
		ctx.logger.Warn("dialogue line passed through", "error", issue)
	}
}
