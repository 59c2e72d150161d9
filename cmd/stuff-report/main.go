package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/stuffscore/internal/config"
	"github.com/okian/stuffscore/internal/report"
)

// Default configuration constants.
const (
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 5 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		population = flag.String("population", config.PopulationFreeAgents, "Population to rank")
		topN       = flag.Int("top", 0, "Number of entries to print, 0 for all")
		workers    = flag.Int("workers", runtime.NumCPU(), "Concurrent rank lookups")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		dbPath     = flag.String("db", "", "Compute locally from this SQLite file")
		asJSON     = flag.Bool("json", false, "Print JSON instead of a table")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		report.ShowHelp(os.Stdout)
		return
	}

	if err := report.SetupLogging(*verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	cfg := &report.Config{
		BaseURL:    *baseURL,
		Population: *population,
		TopN:       *topN,
		Workers:    *workers,
		Timeout:    *timeout,
		DBPath:     *dbPath,
		JSON:       *asJSON,
		Verbose:    *verbose,
	}

	if err := report.Run(ctx, cfg, os.Stdout); err != nil {
		os.Stderr.WriteString("Report failed: " + err.Error() + "\n")
		cancel()
		stop()
		os.Exit(1)
	}
}
