package report

import (
	"fmt"

	"github.com/okian/stuffscore/internal/domain/model"
)

// verifyLeaderboard checks that entries are ordered by raw score
// descending with ties broken by pitcher id ascending, and that ranks
// run 1..n without gaps.
func verifyLeaderboard(entries []model.StuffScoreResult) error {
	for i, e := range entries {
		if e.Rank != i+1 {
			return fmt.Errorf("%w: entry %d has rank %d", ErrInconsistent, i, e.Rank)
		}
		if i == 0 {
			continue
		}
		prev := entries[i-1]
		switch {
		case e.RawScore > prev.RawScore:
			return fmt.Errorf("%w: entry %d (%.6f) scores above entry %d (%.6f)",
				ErrInconsistent, i, e.RawScore, i-1, prev.RawScore)
		case e.RawScore == prev.RawScore && e.PitcherID <= prev.PitcherID:
			return fmt.Errorf("%w: tie between %d and %d not ordered by id",
				ErrInconsistent, prev.PitcherID, e.PitcherID)
		}
	}
	return nil
}

// scoreSummary returns the mean, maximum and minimum raw score.
func scoreSummary(entries []model.StuffScoreResult) (avg, hi, lo float64) {
	if len(entries) == 0 {
		return 0, 0, 0
	}
	hi, lo = entries[0].RawScore, entries[0].RawScore
	sum := 0.0
	for _, e := range entries {
		sum += e.RawScore
		hi = max(hi, e.RawScore)
		lo = min(lo, e.RawScore)
	}
	return sum / float64(len(entries)), hi, lo
}
