// Package main is the entry point for the votetool CLI.
//
// The voting tool can be run either as a library (SDK) or as a standalone
// binary with YAML configuration. This CLI provides the standalone binary
// approach.
//
// Usage:
//
//	votetool run -c config.yaml      # Start a voting campaign
//	votetool validate -c config.yaml # Validate configuration
//	votetool stats -f journal.json   # Summarize an existing journal
//	votetool version                 # Show version info
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "votetool",
	Short: "An adaptive poll-vote automation tool",
	Long: `votetool submits votes for one poll entrant and adapts to the standings.

While the target leads, submissions slow down with exponential backoff.
While it trails, submissions accelerate through pacing tiers and extra
workers join as the deficit grows. Every attempt lands in an audit
journal, and effectiveness is periodically verified against the poll's
own totals.

Quick start:
  1. Create a config file (votetool.yaml)
  2. Run: votetool run -c votetool.yaml

Example config:
  target: Cutler Whitaker
  submitter:
    type: http
    url: https://poll.example.com/vote
    form:
      poll_id: "184"
      answer: "7"`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this votetool binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("votetool %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
}

// newLogger builds a slog logger from the persistent logging flags.
// Logs go to stderr so stdout stays clean for the live display.
func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	levelName, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")

	var level slog.Level
	switch levelName {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", levelName)
	}

	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
