package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	botcms "github.com/mvoevodskiy/botcms"
)

var rootCmd = &cobra.Command{
	Use:   botcms.Name,
	Short: "Conversational flow engine",
	Long: `Runs the dialogue engine: compiles the configured script schema,
connects the session store, and serves the webhook and websocket
bridges over HTTP.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		envFile, _ := cmd.Flags().GetString("env-file")
		// the file is optional; a missing default is not an error
		if err := godotenv.Load(envFile); err != nil &&
			cmd.Flags().Changed("env-file") {
			fmt.Fprintf(cmd.ErrOrStderr(),
				"warning: could not load %s: %v\n", envFile, err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().String(
		"env-file", ".env", "environment file to load before reading config")
	rootCmd.PersistentFlags().StringSlice(
		"schema", nil, "schema YAML file(s) to load (scripts, keyboards, "+
			"lexicons, cron)")
	rootCmd.Run = runCmd.Run
}
