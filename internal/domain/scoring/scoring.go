// Package scoring turns per-pitch-type summaries into a ranked Stuff Score
// leaderboard: usage-weighted profiles, population z-scores, and a
// fixed-weight combination.
package scoring

import (
	"context"
	"runtime"
	"sort"

	"github.com/okian/stuffscore/internal/domain/model"
)

// Default scoring configuration constants.
const (
	defaultDisplayCenter = 50
	defaultDisplaySpread = 10
)

var defaultWorkers = runtime.NumCPU()

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithWeights replaces the weight table. NewScorer validates it.
func WithWeights(w Weights) Option {
	return func(s *Scorer) {
		if w != nil {
			s.weights = w.clone()
		}
	}
}

// WithDisplayScale sets the presentation rescaling.
func WithDisplayScale(d DisplayScale) Option {
	return func(s *Scorer) {
		s.display = d
	}
}

// WithWorkers bounds concurrency of the profile stage.
func WithWorkers(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.workers = n
		}
	}
}

// Scorer combines standardized metrics into a ranked leaderboard.
// A Scorer is immutable after construction and safe for concurrent use.
type Scorer struct {
	weights Weights
	display DisplayScale
	workers int
}

// NewScorer creates a scorer, failing fast on an invalid weight table or
// display scale.
func NewScorer(opts ...Option) (*Scorer, error) {
	s := &Scorer{
		weights: DefaultWeights(),
		display: DefaultDisplayScale(),
		workers: defaultWorkers,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	if err := s.weights.Validate(); err != nil {
		return nil, err
	}
	if err := s.display.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Weights returns a copy of the configured weight table.
func (s *Scorer) Weights() Weights { return s.weights.clone() }

// DisplayScale returns the configured presentation scale.
func (s *Scorer) DisplayScale() DisplayScale { return s.display }

// RawScore is the weighted sum of the six z-scores.
func (s *Scorer) RawScore(z model.PitcherZScores) float64 {
	var raw float64
	for _, m := range model.Metrics() {
		raw += s.weights[m] * z.Value(m)
	}
	return raw
}

// BuildProfiles builds every pitcher's profile using the scorer's worker limit.
func (s *Scorer) BuildProfiles(ctx context.Context, repertoires map[model.PitcherID][]model.PitchTypeSummary) (map[model.PitcherID]model.PitcherProfile, error) {
	return BuildProfiles(ctx, repertoires, s.workers)
}

// ComputeLeaderboard standardizes profiles against each other, combines
// the z-scores and ranks the result by raw score descending, breaking
// ties by pitcher id ascending. Ranks are positional and start at 1.
// Pitchers absent from names get an empty name.
func (s *Scorer) ComputeLeaderboard(profiles map[model.PitcherID]model.PitcherProfile, names map[model.PitcherID]string) ([]model.StuffScoreResult, model.PopulationStats) {
	zs, stats := Standardize(profiles)

	out := make([]model.StuffScoreResult, 0, len(profiles))
	for id, z := range zs {
		raw := s.RawScore(z)
		out = append(out, model.StuffScoreResult{
			PitcherID:    id,
			Name:         names[id],
			RawScore:     raw,
			DisplayScore: s.display.Apply(raw),
			ZScores:      z,
			Profile:      profiles[id],
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].RawScore != out[j].RawScore {
			return out[i].RawScore > out[j].RawScore
		}
		return out[i].PitcherID < out[j].PitcherID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, stats
}

var defaultScorer = func() *Scorer {
	s, err := NewScorer()
	if err != nil {
		panic(err)
	}
	return s
}()

// ComputeLeaderboard ranks profiles with the default weights and display scale.
func ComputeLeaderboard(profiles map[model.PitcherID]model.PitcherProfile, names map[model.PitcherID]string) ([]model.StuffScoreResult, model.PopulationStats) {
	return defaultScorer.ComputeLeaderboard(profiles, names)
}
