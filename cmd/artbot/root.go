package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"artbot/pkg/ui"
)

var (
	// Version information, set with -ldflags at build time
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	logFile    string
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "artbot [search term]",
	Short: "Post a random open-access artwork from The Met to X",
	Long: `artbot searches The Metropolitan Museum of Art collection for a term, picks a
random artwork that has an image, and posts it to X with its title, artist and
a link to the museum page.

Running artbot with a bare search term is the same as 'artbot post <term>'.

Configuration is read from (highest priority first):
  - Command line flags
  - Environment variables (API_KEY, API_SECRET, ACCESS_TOKEN,
    ACCESS_TOKEN_SECRET, ARTBOT_*)
  - A .env file in the working directory
  - .artbot.yaml / .artbot.toml or ~/.config/artbot/config.*
  - Defaults`,
	Example: `  # Post a random cat
  artbot

  # Post a random sunflower painting
  artbot sunflowers

  # See what would be posted without posting
  artbot post armor --dry-run`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if !quiet && !pickJSON && cmd.Name() != "help" && cmd.Name() != "path" {
			ui.NewPrinter(cmd.OutOrStdout()).Logo()
		}
	},
	RunE: runPost,
}

// Execute adds all child commands to the root command and runs it
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.NewPrinter(os.Stderr).Error("Error", err)
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .artbot.yaml or ~/.config/artbot/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write JSON logs to this file, rotated")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "do not print the logo")

	addPostFlags(rootCmd)

	rootCmd.SetVersionTemplate(`artbot {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
