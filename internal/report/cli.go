package report

import (
	"io"
	"os"

	"github.com/okian/stuffscore/pkg/logger"
)

// SetupLogging sends logs to stderr so stdout carries only the report.
func SetupLogging(verbose bool) error {
	if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
		return err
	}
	level := "warn"
	if verbose {
		level = "debug"
	}
	return logger.SetLevelString(level)
}

// ShowHelp prints usage information for the report tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `Stuff Score Report
==================

Prints a pitcher leaderboard ranked by Stuff Score and checks that it is
ordered by raw score with ties broken by pitcher id.

Usage:
  go run ./cmd/stuff-report [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -population string
        Population to rank: main or free_agents (default "free_agents")
  -top int
        Number of entries to print, 0 for all (default 0)
  -workers int
        Concurrent rank lookups (default CPU cores)
  -timeout duration
        HTTP request timeout (default 30s)
  -db string
        Compute locally from this SQLite file instead of calling the service
  -json
        Print JSON instead of a table
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Top 10 free agents from a running service
  go run ./cmd/stuff-report -top 10

  # Main roster computed from a local database
  go run ./cmd/stuff-report -db pitches.db -population main
`)
}
