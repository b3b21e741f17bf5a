package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "edv",
	Short: "A non-linear video editing engine",
	Long: `edv is a headless non-linear video editing engine: it keeps a
project's assets, tracks, clips and edit history in a single document
and turns a timeline into a sequence of encoder invocations. This CLI
is a thin wrapper around that engine; every subcommand maps to one
engine operation.`,
}

// Execute runs the root command, printing any returned error to
// stderr and exiting non-zero, the way cutlass's cmd.Execute does.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "edv: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(assetCmd)
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(clipCmd)
	rootCmd.AddCommand(relateCmd)
	rootCmd.AddCommand(undoCmd)
	rootCmd.AddCommand(redoCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(logsCmd)
}
