/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ytmirror",
	Short: "YouTube Music history mirror for Last.fm",
	Long: `ytmirror continuously mirrors YouTube Music listening history to Last.fm.

It periodically fetches each user's history page, extracts the embedded
track data, works out which entries are genuinely new plays, and submits
them to Last.fm as scrobbles. Failing accounts are notified and eventually
deactivated.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
