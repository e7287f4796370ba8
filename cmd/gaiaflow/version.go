package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set by build flags:
//
//	go build -ldflags "-X main.version=v0.2.0 -X main.commit=$(git rev-parse --short HEAD)"
var (
	version = "dev"
	commit  = "none"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of gaiaflow",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gaiaflow %s (commit %s)\n", version, commit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
