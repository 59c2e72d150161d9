package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/okian/stuffscore/pkg/logger"
)

// Run fetches or computes the leaderboard, verifies it and renders it to w.
func Run(ctx context.Context, config *Config, w io.Writer) error {
	stats := &Stats{
		StartTime: time.Now(),
		Source:    config.BaseURL,
	}
	if config.DBPath != "" {
		stats.Source = config.DBPath
	}

	logger.Get().Debug(ctx, "starting stuff score report",
		logger.String("source", stats.Source),
		logger.String("population", config.Population),
		logger.Int("topN", config.TopN),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout))

	// Step 1: Get the leaderboard
	var (
		rep    *Report
		client *HTTPClient
		err    error
	)
	if config.DBPath != "" {
		rep, err = computeLocal(ctx, config)
	} else {
		client = newHTTPClient(config.Timeout)
		if err := checkServiceHealth(ctx, client, config); err != nil {
			return fmt.Errorf("service health check failed: %w", err)
		}
		rep, err = fetchLeaderboard(ctx, client, config)
	}
	if err != nil {
		return fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	stats.Entries = len(rep.Leaderboard)

	// Step 2: Verify ordering
	if err := verifyLeaderboard(rep.Leaderboard); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 3: Cross-check single-pitcher lookups against the leaderboard
	if client != nil {
		if err := checkRanks(ctx, client, config, rep, stats); err != nil {
			return fmt.Errorf("result verification failed: %w", err)
		}
	}

	// Step 4: Print
	if err := Render(w, rep, config.JSON); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, rep, stats)
	return nil
}

// displayFinalStats logs the run statistics.
func displayFinalStats(ctx context.Context, rep *Report, stats *Stats) {
	avg, hi, lo := scoreSummary(rep.Leaderboard)
	logger.Get().Debug(ctx, "final statistics",
		logger.String("source", stats.Source),
		logger.Int("entries", stats.Entries),
		logger.Int("ranksChecked", stats.RanksChecked),
		logger.Int("rankMismatches", stats.RankMismatches),
		logger.Any("order", names(rep.Leaderboard)),
		logger.Float64("avgRaw", avg),
		logger.Float64("maxRaw", hi),
		logger.Float64("minRaw", lo),
		logger.Duration("duration", stats.Duration))
}
