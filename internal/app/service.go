// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/okian/stuffscore/internal/adapters/mq/queue"
	"github.com/okian/stuffscore/internal/adapters/repository"
	"github.com/okian/stuffscore/internal/domain/dedupe"
	"github.com/okian/stuffscore/internal/domain/model"
	"github.com/okian/stuffscore/internal/domain/scoring"
	"github.com/okian/stuffscore/pkg/logger"
	"github.com/okian/stuffscore/pkg/metrics"
)

const defaultComputeTimeout = 30 * time.Second

// PitcherInput is one pitcher of an ad-hoc population.
type PitcherInput struct {
	PitcherID  model.PitcherID          `json:"pitcher_id"`
	Name       string                   `json:"name"`
	PitchTypes []model.PitchTypeSummary `json:"pitch_types"`
}

// Service implements the API dependencies for the Stuff Score system.
type Service struct {
	mu sync.RWMutex

	// Core components
	source repository.Source
	store  repository.Store
	scorer *scoring.Scorer

	// Background refresh
	queue   queue.Queue
	pending dedupe.Deduper

	// Configuration
	workerCount    int
	computeTimeout time.Duration
	populations    map[string][]string

	// State
	started      bool
	group        singleflight.Group
	lastComputed map[string]time.Time
	computations atomic.Int64
	cacheHits    atomic.Int64
	cacheMisses  atomic.Int64
	scheduled    atomic.Int64

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount bounds concurrent repertoire fetches.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithComputeTimeout bounds a shared leaderboard computation. It runs
// detached from the callers that requested it.
func WithComputeTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.computeTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSource sets the roster and pitch data source.
func WithSource(src repository.Source) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithStore sets the snapshot store. Defaults to an in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithScorer sets the scorer. Defaults to the standard weights.
func WithScorer(scorer *scoring.Scorer) Option {
	return func(s *Service) {
		if scorer != nil {
			s.scorer = scorer
		}
	}
}

// WithPopulations sets the named rosters that can be ranked.
func WithPopulations(pops map[string][]string) Option {
	return func(s *Service) {
		if pops == nil {
			return
		}
		s.populations = make(map[string][]string, len(pops))
		for name, names := range pops {
			s.populations[name] = append([]string(nil), names...)
		}
	}
}

// WithRefreshQueue enables background refreshes. pending may be nil,
// in which case the same population can be queued more than once.
func WithRefreshQueue(q queue.Queue, pending dedupe.Deduper) Option {
	return func(s *Service) {
		s.queue = q
		s.pending = pending
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:    runtime.NumCPU(),
		computeTimeout: defaultComputeTimeout,
		populations:    map[string][]string{},
		lastComputed:   map[string]time.Time{},
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start checks the wiring and fills in defaults.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.source == nil {
		return ErrNoSource
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory snapshot store")
	}
	if s.scorer == nil {
		scorer, err := scoring.NewScorer(scoring.WithWorkers(s.workerCount))
		if err != nil {
			return err
		}
		s.scorer = scorer
	}

	s.started = true
	s.logger.Info(ctx, "stuff score service started",
		logger.Int("workers", s.workerCount),
		logger.Any("populations", s.populationNames()),
	)
	return nil
}

// Stop releases the snapshot store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "failed to close snapshot store", logger.Error(err))
	}
	s.started = false
	s.logger.Info(context.Background(), "stuff score service stopped")
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// Populations returns the configured population names, sorted.
func (s *Service) Populations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.populationNames()
}

func (s *Service) populationNames() []string {
	out := make([]string, 0, len(s.populations))
	for name := range s.populations {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s *Service) roster(population string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names, ok := s.populations[population]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPopulation, population)
	}
	return names, nil
}

// Pitchers returns the population's pitchers that have pitch data.
func (s *Service) Pitchers(ctx context.Context, population string) ([]model.Pitcher, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	names, err := s.roster(population)
	if err != nil {
		return nil, err
	}
	return s.source.Pitchers(ctx, names)
}

// Summary returns a pitcher's pitch-type rows rounded for display. An
// unknown pitcher yields no rows.
func (s *Service) Summary(ctx context.Context, id model.PitcherID) ([]model.PitchTypeSummary, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.source.Summary(ctx, id)
}

// Highlights returns the pitcher's most used, hardest and softest-contact
// pitch types.
func (s *Service) Highlights(ctx context.Context, id model.PitcherID) (scoring.PitcherHighlights, error) {
	rows, err := s.Summary(ctx, id)
	if err != nil {
		return scoring.PitcherHighlights{}, err
	}
	return scoring.Highlights(rows), nil
}

// StuffScore returns the population's leaderboard, serving the published
// snapshot when there is one. Concurrent misses share one computation.
func (s *Service) StuffScore(ctx context.Context, population string) (*repository.Snapshot, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if _, err := s.roster(population); err != nil {
		return nil, err
	}

	snap, err := s.store.Latest(ctx, population)
	switch {
	case err == nil:
		s.cacheHits.Add(1)
		return snap, nil
	case !errors.Is(err, repository.ErrNotFound):
		// store outage: fall through to a fresh computation
		s.logger.Warn(ctx, "snapshot store read failed", logger.String("population", population), logger.Error(err))
		metrics.RecordErrorByComponent("store", "read")
	}
	s.cacheMisses.Add(1)

	return s.shared(ctx, population)
}

// Refresh drops the population's snapshot and recomputes it.
func (s *Service) Refresh(ctx context.Context, population string) (*repository.Snapshot, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if _, err := s.roster(population); err != nil {
		return nil, err
	}
	if err := s.store.Invalidate(ctx, population); err != nil {
		s.logger.Warn(ctx, "snapshot invalidation failed", logger.String("population", population), logger.Error(err))
	}
	return s.shared(ctx, population)
}

// Rank returns one pitcher's entry in the population's leaderboard.
// Returns repository.ErrNotFound if the pitcher is not ranked there.
func (s *Service) Rank(ctx context.Context, population string, id model.PitcherID) (model.StuffScoreResult, error) {
	snap, err := s.StuffScore(ctx, population)
	if err != nil {
		return model.StuffScoreResult{}, err
	}
	return snap.Rank(id)
}

// Score ranks an ad-hoc population supplied by the caller. Nothing is
// cached. Pitchers without rows are skipped.
func (s *Service) Score(ctx context.Context, pitchers []PitcherInput) ([]model.StuffScoreResult, model.PopulationStats, error) {
	if err := s.ready(); err != nil {
		return nil, nil, err
	}
	reps := make(map[model.PitcherID][]model.PitchTypeSummary, len(pitchers))
	names := make(map[model.PitcherID]string, len(pitchers))
	for _, p := range pitchers {
		if _, dup := names[p.PitcherID]; dup {
			return nil, nil, fmt.Errorf("%w: duplicate pitcher_id %d", ErrInvalidInput, p.PitcherID)
		}
		names[p.PitcherID] = p.Name
		if len(p.PitchTypes) > 0 {
			reps[p.PitcherID] = p.PitchTypes
		}
	}

	profiles, err := s.scorer.BuildProfiles(ctx, reps)
	if err != nil {
		return nil, nil, err
	}
	results, stats := s.scorer.ComputeLeaderboard(profiles, names)
	return results, stats, nil
}

// shared joins or starts the population's computation. The computation
// does not inherit the caller's cancellation, so one caller giving up
// never fails the others; each caller stops waiting on its own ctx.
func (s *Service) shared(ctx context.Context, population string) (*repository.Snapshot, error) {
	ch := s.group.DoChan(population, func() (any, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.computeTimeout)
		defer cancel()
		return s.compute(cctx, population)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*repository.Snapshot), nil
	}
}

// compute fetches the roster and repertoires, ranks them and publishes
// the snapshot.
func (s *Service) compute(ctx context.Context, population string) (*repository.Snapshot, error) {
	start := time.Now()
	log := s.logger.Named("compute")

	names, err := s.roster(population)
	if err != nil {
		return nil, err
	}
	roster, err := s.source.Pitchers(ctx, names)
	if err != nil {
		metrics.RecordScoringError()
		return nil, fmt.Errorf("load roster %s: %w", population, err)
	}

	reps, err := s.repertoires(ctx, roster)
	if err != nil {
		metrics.RecordScoringError()
		return nil, fmt.Errorf("load repertoires %s: %w", population, err)
	}

	profiles, err := s.scorer.BuildProfiles(ctx, reps)
	if err != nil {
		metrics.RecordScoringError()
		return nil, err
	}
	byID := make(map[model.PitcherID]string, len(roster))
	for _, p := range roster {
		byID[p.ID] = p.Name
	}
	results, stats := s.scorer.ComputeLeaderboard(profiles, byID)
	recordQuality(profiles, stats)

	took := time.Since(start)
	snap := &repository.Snapshot{
		Population:  population,
		Results:     results,
		Stats:       stats,
		GeneratedAt: time.Now().UTC(),
		ComputeMs:   float64(took.Microseconds()) / 1000,
	}
	if err := s.store.Publish(ctx, snap); err != nil {
		log.Warn(ctx, "snapshot publish failed", logger.String("population", population), logger.Error(err))
		metrics.RecordErrorByComponent("store", "publish")
	}

	s.computations.Add(1)
	s.mu.Lock()
	s.lastComputed[population] = snap.GeneratedAt
	s.mu.Unlock()

	metrics.RecordLeaderboardComputation(population, len(results), snap.ComputeMs)
	log.Info(ctx, "leaderboard computed",
		logger.String("population", population),
		logger.Int("pitchers", len(results)),
		logger.Duration("took", took),
	)
	return snap, nil
}

// repertoires fetches every pitcher's rows concurrently. Pitchers with no
// rows are left out.
func (s *Service) repertoires(ctx context.Context, roster []model.Pitcher) (map[model.PitcherID][]model.PitchTypeSummary, error) {
	var mu sync.Mutex
	out := make(map[model.PitcherID][]model.PitchTypeSummary, len(roster))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workerCount)
	for _, p := range roster {
		g.Go(func() error {
			rows, err := s.source.Repertoire(gctx, p.ID)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return nil
			}
			mu.Lock()
			out[p.ID] = rows
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// recordQuality exports how many pitchers lacked each metric and which
// metrics had no spread.
func recordQuality(profiles map[model.PitcherID]model.PitcherProfile, stats model.PopulationStats) {
	for _, m := range model.Metrics() {
		st := stats.Get(m)
		for i := st.Count; i < len(profiles); i++ {
			metrics.RecordMissingMetric(m.String())
		}
		if st.Count > 0 && st.StdDev == 0 {
			metrics.RecordZeroVariance(m.String())
		}
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	last := make(map[string]string, len(s.lastComputed))
	for pop, at := range s.lastComputed {
		last[pop] = at.Format(time.RFC3339)
	}
	stats := map[string]interface{}{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"populations":  s.populationNames(),
		"computations": s.computations.Load(),
		"cacheHits":    s.cacheHits.Load(),
		"cacheMisses":  s.cacheMisses.Load(),
		"lastComputed": last,
		"scheduled":    s.scheduled.Load(),
	}
	if s.queue != nil {
		stats["refreshQueueLength"] = s.queue.Len(context.Background())
	}
	if s.scorer != nil {
		stats["weights"] = s.scorer.Weights().Names()
		stats["displayScale"] = s.scorer.DisplayScale()
	}
	return stats
}
