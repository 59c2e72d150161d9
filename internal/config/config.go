// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults, Load(ctx) to layer
//   a YAML file and environment variables over them.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"runtime"
)

// Population names served by the API.
const (
	PopulationMain       = "main"
	PopulationFreeAgents = "free_agents"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database holding the players and pitches tables.
	DBPath string `koanf:"db_path"`

	// RedisURL enables the shared snapshot cache. Empty keeps snapshots in memory.
	RedisURL string `koanf:"redis_url"`

	// CacheTTLSeconds bounds how long a published leaderboard is served
	// before it is recomputed. Zero keeps snapshots until invalidated.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// WorkerCount bounds concurrency of profile building.
	WorkerCount int `koanf:"worker_count"`

	// RefreshWorkers is the number of background refresh workers. Zero
	// disables background refresh and async refresh requests.
	RefreshWorkers int `koanf:"refresh_workers"`

	// RefreshQueueSize bounds pending background refresh jobs.
	RefreshQueueSize int `koanf:"refresh_queue_size"`

	// RefreshIntervalSeconds re-warms every population on this period.
	// Zero warms once at startup only.
	RefreshIntervalSeconds int `koanf:"refresh_interval_seconds"`

	// RequestTimeoutMS caps each HTTP request.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// MaxLeaderboardLimit caps ?limit on leaderboard reads.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// MetricsNamespace and MetricsSubsystem prefix every exported metric.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsLabels are constant labels on every metric, e.g. env=prod.
	MetricsLabels map[string]string `koanf:"metrics_labels"`

	// MetricsLatencyBucketsMS overrides the latency histogram bounds.
	MetricsLatencyBucketsMS []float64 `koanf:"metrics_latency_buckets_ms"`

	// AllowedOrigins lists CORS origins; "*" allows any.
	AllowedOrigins []string `koanf:"allowed_origins"`

	// Weights maps metric names to their share of the raw score.
	Weights map[string]float64 `koanf:"weights"`

	// DisplayCenter and DisplaySpread rescale raw scores for presentation.
	DisplayCenter float64 `koanf:"display_center"`
	DisplaySpread float64 `koanf:"display_spread"`

	// MainPitchers and FreeAgents are the display names of each population.
	MainPitchers []string `koanf:"main_pitchers"`
	FreeAgents   []string `koanf:"free_agents"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":9080",
		DBPath:                 "pitches.db",
		CacheTTLSeconds:        300,
		WorkerCount:            runtime.NumCPU(),
		RefreshWorkers:         2,
		RefreshQueueSize:       64,
		RefreshIntervalSeconds: 240,
		RequestTimeoutMS:       5_000,
		MaxLeaderboardLimit:    100,
		MetricsNamespace:       "stuffscore",
		MetricsSubsystem:       "leaderboard",
		AllowedOrigins:         []string{"*"},
		Weights: map[string]float64{
			"speed":                0.25,
			"spin_rate":            0.20,
			"vertical_break_abs":   0.20,
			"horizontal_break_abs": 0.15,
			"exit_velocity":        0.10,
			"launch_angle":         0.10,
		},
		DisplayCenter: 50,
		DisplaySpread: 10,
		MainPitchers:  append([]string(nil), defaultMainPitchers...),
		FreeAgents:    append([]string(nil), defaultFreeAgents...),
	}
}

// Populations returns the configured name lists keyed by population.
func (c *Config) Populations() map[string][]string {
	return map[string][]string{
		PopulationMain:       c.MainPitchers,
		PopulationFreeAgents: c.FreeAgents,
	}
}

var defaultMainPitchers = []string{
	"Logan Webb",
	"Carlos Rodón",
	"Garrett Crochet",
	"Zac Gallen",
	"Max Fried",
	"Jake Irvin",
	"MacKenzie Gore",
	"Brad Lord",
	"Jose A. Ferrer",
	"Matt Waldron",
}

var defaultFreeAgents = []string{
	"Dylan Cease",
	"Framber Valdez",
	"Ranger Suárez",
	"Nick Martinez",
	"Chris Bassitt",
	"Michael King",
	"Zac Gallen",
	"Merrill Kelly",
	"Zack Littell",
	"Patrick Corbin",
	"Erick Fedde",
	"Justin Verlander",
	"Zach Eflin",
	"Miles Mikolas",
	"Nestor Cortes",
	"Adrian Houser",
	"Tyler Mahle",
	"Lucas Giolito",
	"Andrew Heaney",
	"Michael Lorenzen",
	"Jose Quintana",
	"Aaron Civale",
	"Chris Paddack",
	"Tyler Anderson",
	"Michael Soroka",
	"Jon Gray",
	"Martín Pérez",
	"Griffin Canning",
	"Chris Flexen",
	"Marcus Stroman",
	"Max Scherzer",
	"Austin Gomber",
	"Cal Quantrill",
	"Dustin May",
	"Paul Blackburn",
	"Jordan Montgomery",
	"JT Brubaker",
	"Germán Márquez",
	"Tomoyuki Sugano",
	"José Ureña",
	"José Urquidy",
	"Tony Gonsolin",
	"Kenta Maeda",
	"Mike Clevinger",
	"Wade Miley",
	"Walker Buehler",
	"Anthony DeSclafani",
}
