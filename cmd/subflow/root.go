package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ZaguanLabs/subflow"
)

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	ctx := newCommandContext(stdout, stderr)

	rootCmd := &cobra.Command{
		Use:           "subflow",
		Short:         subflow.Description,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			return ctx.prepare(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.flags.configPath, "config", "c", "", "Configuration file path")
	flags.StringVar(&ctx.flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&ctx.flags.logFormat, "log-format", "", "Log format (auto, console, json)")
	flags.StringVar(&ctx.flags.targetLang, "lang", "", "Target language code (e.g., ja_JP)")
	flags.StringVar(&ctx.flags.sourceLang, "source", "", "Source language code")
	flags.StringVar(&ctx.flags.apiKey, "api-key", "", "OpenAI API key (default: OPENAI_API_KEY env)")
	flags.StringVar(&ctx.flags.model, "model", "", "Model to use")
	flags.StringVar(&ctx.flags.baseURL, "base-url", "", "OpenAI-compatible API base URL")
	flags.StringVar(&ctx.flags.cacheBackend, "cache", "", "Cache backend (none, memory, sqlite, redis)")
	flags.IntVar(&ctx.flags.concurrency, "concurrency", 0, "Sentences translated in parallel")
	flags.BoolVarP(&ctx.flags.quiet, "quiet", "q", false, "Suppress progress output")

	rootCmd.AddCommand(newExtractCommand(ctx))
	rootCmd.AddCommand(newMergeCommand(ctx))
	rootCmd.AddCommand(newTranslateCommand(ctx))
	rootCmd.AddCommand(newInjectCommand(ctx))
	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newInspectCommand(ctx))
	rootCmd.AddCommand(newCacheCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "help", "completion":
		return true
	}
	return false
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", subflow.Name, version)
			if commit != "unknown" && commit != "" {
				fmt.Fprintf(out, "  commit:  %s\n", commit)
			}
			if buildDate != "unknown" && buildDate != "" {
				fmt.Fprintf(out, "  built:   %s\n", buildDate)
			}
			return nil
		},
	}
}
