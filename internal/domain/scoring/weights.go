package scoring

import (
	"fmt"
	"math"

	"github.com/okian/stuffscore/internal/domain/model"
)

// weightSumTolerance bounds floating-point drift when checking the weight sum.
const weightSumTolerance = 1e-9

// Weights maps each metric to its share of the composite score.
type Weights map[model.Metric]float64

// DefaultWeights returns the standard Stuff Score weight table.
func DefaultWeights() Weights {
	return Weights{
		model.MetricSpeed:           0.25,
		model.MetricSpinRate:        0.20,
		model.MetricVerticalBreak:   0.20,
		model.MetricHorizontalBreak: 0.15,
		model.MetricExitVelocity:    0.10,
		model.MetricLaunchAngle:     0.10,
	}
}

// WeightsFromNames converts a name-keyed table (as loaded from config).
func WeightsFromNames(named map[string]float64) (Weights, error) {
	w := make(Weights, len(named))
	for name, v := range named {
		m, err := model.ParseMetric(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidWeights, err)
		}
		w[m] = v
	}
	return w, nil
}

// Names returns the table keyed by metric name.
func (w Weights) Names() map[string]float64 {
	out := make(map[string]float64, len(w))
	for m, v := range w {
		out[m.String()] = v
	}
	return out
}

// Sum adds up all weights.
func (w Weights) Sum() float64 {
	var sum float64
	for _, m := range model.Metrics() {
		sum += w[m]
	}
	return sum
}

// Validate checks that every metric has a non-negative weight and that
// the table sums to 1.
func (w Weights) Validate() error {
	if len(w) != len(model.Metrics()) {
		return fmt.Errorf("%w: want %d metrics, got %d", ErrInvalidWeights, len(model.Metrics()), len(w))
	}
	for _, m := range model.Metrics() {
		v, ok := w[m]
		if !ok {
			return fmt.Errorf("%w: missing %s", ErrInvalidWeights, m)
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s=%v", ErrInvalidWeights, m, v)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("%w: sum is %.12f, want 1", ErrInvalidWeights, sum)
	}
	return nil
}

func (w Weights) clone() Weights {
	out := make(Weights, len(w))
	for m, v := range w {
		out[m] = v
	}
	return out
}

// DisplayScale rescales raw scores for presentation only.
type DisplayScale struct {
	Center float64 `json:"center"`
	Spread float64 `json:"spread"`
}

// DefaultDisplayScale centers scores on 50 with 10 points per unit.
func DefaultDisplayScale() DisplayScale {
	return DisplayScale{Center: defaultDisplayCenter, Spread: defaultDisplaySpread}
}

// Validate rejects scales that would reorder the leaderboard.
func (d DisplayScale) Validate() error {
	if !(d.Spread > 0) || math.IsInf(d.Spread, 0) || math.IsNaN(d.Center) || math.IsInf(d.Center, 0) {
		return fmt.Errorf("%w: center=%v spread=%v", ErrInvalidDisplayScale, d.Center, d.Spread)
	}
	return nil
}

// Apply maps a raw score onto the display scale.
func (d DisplayScale) Apply(raw float64) float64 {
	return d.Center + d.Spread*raw
}
