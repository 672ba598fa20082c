package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZaguanLabs/subflow/cache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Export and import the translation cache",
	}

	cacheCmd.AddCommand(newCacheExportCommand(ctx))
	cacheCmd.AddCommand(newCacheImportCommand(ctx))

	return cacheCmd
}

func newCacheExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write every cached translation to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeCache, err := ctx.openCache()
			if err != nil {
				return err
			}
			defer closeCache()
			if store == nil {
				return fmt.Errorf("cache backend is %q; nothing to export", ctx.config.Cache.Backend)
			}

			metadata := map[string]string{
				"backend":     ctx.config.Cache.Backend,
				"source_lang": ctx.config.Translation.SourceLang,
				"target_lang": ctx.config.Translation.TargetLang,
				"run_id":      ctx.runID,
			}
			if err := cache.NewExporter(store).ExportToFile(args[0], metadata); err != nil {
				return err
			}

			ctx.logger.Info("cache exported", "path", args[0])
			ctx.progress("Cache exported to %s", args[0])
			return nil
		},
	}
}

func newCacheImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load translations from an exported JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeCache, err := ctx.openCache()
			if err != nil {
				return err
			}
			defer closeCache()
			if store == nil {
				return fmt.Errorf("cache backend is %q; nowhere to import", ctx.config.Cache.Backend)
			}

			result, err := cache.NewImporter(store).ImportFromFile(args[0])
			if err != nil {
				return err
			}

			ctx.logger.Info("cache imported", "path", args[0], "imported", result.Imported, "failed", result.Failed)
			ctx.progress("Imported %d entries (%d failed)", result.Imported, result.Failed)
			return nil
		},
	}
}
