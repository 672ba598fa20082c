package main

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ZaguanLabs/subflow"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var (
		translations string
		width        int
	)

	cmd := &cobra.Command{
		Use:   "inspect [track.ass]",
		Short: "Show how dialogue lines merge into sentences",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, name, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			proc := processorFor(name, ctx.config.RenderMode())
			parsed, entries, err := proc.Extract(input)
			if err != nil {
				return fmt.Errorf("extracting dialogue: %w", err)
			}
			logIssues(ctx, parsed)

			units := subflow.MergeSentences(subflow.EntryTexts(entries, ctx.config.Output.StripMarkup))

			var translated map[int][]string
			if translations != "" {
				translated, err = loadTranslatedLines(translations)
				if err != nil {
					return err
				}
			}

			headers := []string{"#", "Lines", "Count", "Sentence"}
			aligns := []columnAlignment{alignRight, alignLeft, alignRight, alignLeft}
			if translated != nil {
				headers = append(headers, "Translation")
				aligns = append(aligns, alignLeft)
			}

			rows := make([][]string, 0, len(units))
			for i, u := range units {
				row := []string{
					strconv.Itoa(i + 1),
					fmt.Sprintf("%d-%d", u.Start+1, u.End+1),
					strconv.Itoa(u.LineCount()),
					u.SourceText,
				}
				if translated != nil {
					row = append(row, strings.Join(translated[u.Start], " / "))
				}
				rows = append(rows, row)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d dialogue lines, %d sentences\n", name, len(entries), len(units))
			if len(rows) > 0 {
				fmt.Fprintln(out, renderTable(headers, rows, aligns, width))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&translations, "translations", "t", "", "Translated JSON file to show alongside")
	cmd.Flags().IntVar(&width, "width", 60, "Maximum width of text columns (0 for unlimited)")
	return cmd
}

// loadTranslatedLines indexes translated segments by their 0-based start position.
func loadTranslatedLines(path string) (map[int][]string, error) {
	data, err := os.ReadFile(path) // #nosec G304 - CLI tool reads user-specified files
	if err != nil {
		return nil, fmt.Errorf("reading translations: %w", err)
	}
	units, err := subflow.ReadTranslated(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	byStart := make(map[int][]string, len(units))
	for _, u := range units {
		byStart[u.Start] = u.Lines
	}
	return byStart, nil
}
