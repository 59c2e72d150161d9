package config

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/stuffscore/internal/domain/scoring"
)

const envPrefix = "STUFF_"

// listKeys are env keys whose value is a comma-separated list.
var listKeys = map[string]bool{
	"allowed_origins": true,
	"main_pitchers":   true,
	"free_agents":     true,

	"metrics_latency_buckets_ms": true,
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if STUFF_CONFIG is set
//  3. env (prefix STUFF_)
func Load(_ context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrLoadConfig, path, err)
		}
	}

	// Environment variables: STUFF_ADDR, STUFF_DB_PATH, STUFF_WEIGHTS_SPEED, ...
	// Keys stay flat except weights_<metric> and metrics_labels_<name>,
	// which nest under their maps.
	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(envPrefix))
		if key == "config" {
			return "", nil
		}
		if rest, ok := strings.CutPrefix(key, "weights_"); ok {
			return "weights." + rest, value
		}
		if rest, ok := strings.CutPrefix(key, "metrics_labels_"); ok {
			return "metrics_labels." + rest, value
		}
		if listKeys[key] {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if k.Exists("weights") {
		// a configured table replaces the defaults instead of merging into them
		cfg.Weights = nil
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DBPath == "":
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	case c.CacheTTLSeconds < 0:
		return fmt.Errorf("%w: cache_ttl_seconds must not be negative", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.RefreshWorkers < 0:
		return fmt.Errorf("%w: refresh_workers must not be negative", ErrInvalidConfig)
	case c.RefreshQueueSize < 1:
		return fmt.Errorf("%w: refresh_queue_size must be positive", ErrInvalidConfig)
	case c.RefreshIntervalSeconds < 0:
		return fmt.Errorf("%w: refresh_interval_seconds must not be negative", ErrInvalidConfig)
	case c.RequestTimeoutMS < 1:
		return fmt.Errorf("%w: request_timeout_ms must be positive", ErrInvalidConfig)
	case c.MaxLeaderboardLimit < 1:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	case !(c.DisplaySpread > 0) || math.IsInf(c.DisplaySpread, 0):
		return fmt.Errorf("%w: display_spread must be positive", ErrInvalidConfig)
	case c.MetricsNamespace == "":
		return fmt.Errorf("%w: metrics_namespace must not be empty", ErrInvalidConfig)
	}
	for i, b := range c.MetricsLatencyBucketsMS {
		if !(b > 0) || math.IsInf(b, 0) || (i > 0 && b <= c.MetricsLatencyBucketsMS[i-1]) {
			return fmt.Errorf("%w: metrics_latency_buckets_ms must be positive and increasing", ErrInvalidConfig)
		}
	}
	if _, err := c.ScoringWeights(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ScoringWeights converts the configured weight table.
func (c *Config) ScoringWeights() (scoring.Weights, error) {
	w, err := scoring.WeightsFromNames(c.Weights)
	if err != nil {
		return nil, err
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// DisplayScale returns the configured presentation scale.
func (c *Config) DisplayScale() scoring.DisplayScale {
	return scoring.DisplayScale{Center: c.DisplayCenter, Spread: c.DisplaySpread}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
