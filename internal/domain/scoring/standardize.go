package scoring

import (
	"math"

	"github.com/okian/stuffscore/internal/domain/model"
)

// Standardize converts every profile in the population to z-scores.
//
// The population is exactly the profiles passed in. For each metric the
// mean and the population standard deviation (denominator = count) are
// taken over the pitchers that have the metric. Lower-is-better metrics
// are flipped so a positive z is always better. A metric with zero
// spread yields 0 for everyone, and a pitcher missing a metric gets 0.
func Standardize(profiles map[model.PitcherID]model.PitcherProfile) (map[model.PitcherID]model.PitcherZScores, model.PopulationStats) {
	stats := make(model.PopulationStats, len(model.Metrics()))
	for _, m := range model.Metrics() {
		stats[m.String()] = describe(profiles, m)
	}

	out := make(map[model.PitcherID]model.PitcherZScores, len(profiles))
	for id, p := range profiles {
		var z model.PitcherZScores
		for _, m := range model.Metrics() {
			v, ok := p.Value(m)
			if !ok {
				continue
			}
			z.Set(m, zScore(v, stats.Get(m), m.LowerIsBetter()))
		}
		out[id] = z
	}
	return out, stats
}

// describe computes the population mean and standard deviation of m.
func describe(profiles map[model.PitcherID]model.PitcherProfile, m model.Metric) model.MetricStats {
	var (
		n      int
		sum    float64
		lo, hi float64
	)
	for _, p := range profiles {
		v, ok := p.Value(m)
		if !ok {
			continue
		}
		if n == 0 || v < lo {
			lo = v
		}
		if n == 0 || v > hi {
			hi = v
		}
		sum += v
		n++
	}
	if n == 0 {
		return model.MetricStats{}
	}
	mean := sum / float64(n)
	if lo == hi {
		// identical values; summation drift must not produce a tiny spread
		return model.MetricStats{Mean: lo, Count: n}
	}

	var ss float64
	for _, p := range profiles {
		if v, ok := p.Value(m); ok {
			d := v - mean
			ss += d * d
		}
	}
	return model.MetricStats{
		Mean:   mean,
		StdDev: math.Sqrt(ss / float64(n)),
		Count:  n,
	}
}

// zScore standardizes v; flip inverts the direction for lower-is-better metrics.
func zScore(v float64, s model.MetricStats, flip bool) float64 {
	if s.StdDev == 0 {
		return 0
	}
	if flip {
		return (s.Mean - v) / s.StdDev
	}
	return (v - s.Mean) / s.StdDev
}
