package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is overridden at release time via -ldflags.
var version = "0.4.0-dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show dcx version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dcx %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
