// Package report fetches or computes a Stuff Score leaderboard, checks its
// ordering and prints it.
package report

import (
	"time"

	"github.com/okian/stuffscore/internal/domain/model"
)

// Config holds configuration for a report run
type Config struct {
	BaseURL    string        // Base URL of the service
	Population string        // Population to rank
	TopN       int           // Number of entries to print, 0 for all
	Workers    int           // Concurrent rank lookups
	Timeout    time.Duration // HTTP request timeout
	DBPath     string        // Compute locally from this SQLite file instead of calling the service
	JSON       bool          // Print JSON instead of a table
	Verbose    bool          // Enable verbose logging
}

// Report is a leaderboard as returned by the service.
type Report struct {
	Population  string                   `json:"population"`
	GeneratedAt string                   `json:"generated_at,omitempty"`
	Leaderboard []model.StuffScoreResult `json:"leaderboard"`
	LeagueStats model.PopulationStats    `json:"league_stats"`
}

// Stats holds run statistics
type Stats struct {
	Source         string
	Entries        int
	RanksChecked   int
	RankMismatches int
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}
