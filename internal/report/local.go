package report

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/stuffscore/internal/adapters/repository"
	service "github.com/okian/stuffscore/internal/app"
	"github.com/okian/stuffscore/internal/config"
	"github.com/okian/stuffscore/internal/domain/scoring"
	"github.com/okian/stuffscore/pkg/logger"
)

// computeLocal ranks the population straight from a SQLite file, using
// the same configuration layers as the server for rosters and weights.
func computeLocal(ctx context.Context, rc *Config) (*Report, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	weights, err := cfg.ScoringWeights()
	if err != nil {
		return nil, err
	}
	scorer, err := scoring.NewScorer(
		scoring.WithWeights(weights),
		scoring.WithDisplayScale(cfg.DisplayScale()),
		scoring.WithWorkers(max(rc.Workers, 1)),
	)
	if err != nil {
		return nil, err
	}

	src, err := repository.OpenSQLite(ctx, rc.DBPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()

	svc := service.New(
		service.WithLogger(logger.Named("report")),
		service.WithSource(src),
		service.WithScorer(scorer),
		service.WithWorkerCount(max(rc.Workers, 1)),
		service.WithPopulations(cfg.Populations()),
	)
	if err := svc.Start(ctx); err != nil {
		return nil, err
	}
	defer svc.Stop()

	snap, err := svc.StuffScore(ctx, rc.Population)
	if err != nil {
		return nil, err
	}
	results := snap.Results
	if rc.TopN > 0 {
		if results, err = snap.TopN(rc.TopN); err != nil {
			return nil, err
		}
	}
	return &Report{
		Population:  snap.Population,
		GeneratedAt: snap.GeneratedAt.UTC().Format(time.RFC3339),
		Leaderboard: results,
		LeagueStats: snap.Stats,
	}, nil
}
