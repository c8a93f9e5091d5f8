package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	errs "skytally/pkg/errors"
	"skytally/pkg/logger"
	"skytally/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noColor    bool
	quiet      bool
	showLogo   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "skytally",
	Short: "Count hashtags, likes and reposts on Bluesky",
	Long: `skytally fetches public Bluesky data through the XRPC API and prints
frequency tables built from it.

Features:
  - Hashtag search with hashtag, repost and likes-by-date tallies
  - Post likes broken down by flag emoji or over time
  - Author feeds ranked by reposted, replied-to and most active users
  - Offline analysis of saved JSON datasets
  - Rate-limit aware fetching with backoff and endpoint fallback
  - Table or JSON output`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			os.Setenv("NO_COLOR", "1")
			ui.SetOutput(os.Stderr)
		}
		if quiet || logLevel == "error" {
			ui.SetQuiet(true)
		}
		if showLogo {
			ui.PrintLogo()
		}
	},
}

// Execute runs the root command and returns the process exit code
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("interrupted by signal")
			ui.PrintWarning("Interrupted")
			return 130
		}
		logger.WithError(err).Debug("command failed")
		ui.PrintError("Error", err)
		ui.PrintHint(errs.Guidance(err))
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.skytally.yaml or ~/.config/skytally/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress status output except errors")
	rootCmd.PersistentFlags().BoolVar(&showLogo, "logo", false, "print the banner before running")

	// Version template
	rootCmd.SetVersionTemplate(`skytally {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
