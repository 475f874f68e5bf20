package main

import (
	"fmt"

	"github.com/spf13/cobra"

	botcms "github.com/mvoevodskiy/botcms"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the engine version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(),
			"%s %s\n", botcms.Name, botcms.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
