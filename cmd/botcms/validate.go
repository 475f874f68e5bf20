package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvoevodskiy/botcms/internal/config"
	"github.com/mvoevodskiy/botcms/internal/engine"
	"github.com/mvoevodskiy/botcms/internal/schema"
	"github.com/mvoevodskiy/botcms/internal/script"
	"github.com/mvoevodskiy/botcms/internal/storage"
	"github.com/mvoevodskiy/botcms/pkg/log"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Compile the configured schemas without starting the engine",
	Run: func(cmd *cobra.Command, args []string) {
		paths, _ := cmd.Flags().GetStringSlice("schema")
		paths = append(paths, args...)
		if len(paths) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "no schema files given")
			os.Exit(1)
		}

		logger := log.NewText(cmd.ErrOrStderr(), slog.LevelWarn)
		scripts := script.New(logger)
		eng := engine.New(
			scripts, storage.NewMemoryStore(),
			config.NewDefaultConfig(), logger,
		)
		loader := schema.NewLoader(logger, eng, nil)

		for _, path := range paths {
			if err := loader.LoadFile(cmd.Context(), path); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(),
					"%s: %v\n", path, err)
				os.Exit(1)
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(),
			"%d steps compiled from %d schema file(s)\n",
			scripts.Len(), len(paths))
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
