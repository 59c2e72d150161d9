// Package repository holds the data source and the leaderboard snapshot stores.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/stuffscore/internal/domain/model"
)

// Snapshot is an immutable computed leaderboard for one population.
type Snapshot struct {
	Population  string                   `json:"population"`
	Results     []model.StuffScoreResult `json:"results"`
	Stats       model.PopulationStats    `json:"population_stats"`
	GeneratedAt time.Time                `json:"generated_at"`
	// ComputeMs is how long the computation took.
	ComputeMs float64 `json:"compute_ms"`
}

// Len returns the number of ranked pitchers.
func (s *Snapshot) Len() int { return len(s.Results) }

// Rank returns the entry for id. Returns ErrNotFound if the pitcher is not
// part of the population.
func (s *Snapshot) Rank(id model.PitcherID) (model.StuffScoreResult, error) {
	for _, r := range s.Results {
		if r.PitcherID == id {
			return r, nil
		}
	}
	return model.StuffScoreResult{}, fmt.Errorf("%w: pitcher %d in %s", ErrNotFound, id, s.Population)
}

// TopN returns the first n entries; n <= 0 is rejected with ErrInvalidLimit.
func (s *Snapshot) TopN(n int) ([]model.StuffScoreResult, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}
	if n > len(s.Results) {
		n = len(s.Results)
	}
	return s.Results[:n], nil
}

// Store caches computed snapshots by population.
type Store interface {
	// Publish replaces the population's snapshot.
	Publish(ctx context.Context, snap *Snapshot) error
	// Latest returns the current snapshot. Returns ErrNotFound if none was
	// published or it expired.
	Latest(ctx context.Context, population string) (*Snapshot, error)
	// Invalidate drops the population's snapshot.
	Invalidate(ctx context.Context, population string) error
	// Close releases resources.
	Close() error
}
