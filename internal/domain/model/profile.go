package model

import (
	"fmt"
	"strings"
)

// Metric names one of the six Stuff Score components.
type Metric int

// Metrics in their canonical order.
const (
	MetricSpeed Metric = iota
	MetricHorizontalBreak
	MetricVerticalBreak
	MetricSpinRate
	MetricExitVelocity
	MetricLaunchAngle

	metricCount
)

var metricNames = [metricCount]string{
	MetricSpeed:           "speed",
	MetricHorizontalBreak: "horizontal_break_abs",
	MetricVerticalBreak:   "vertical_break_abs",
	MetricSpinRate:        "spin_rate",
	MetricExitVelocity:    "exit_velocity",
	MetricLaunchAngle:     "launch_angle",
}

// Metrics returns all metrics in canonical order.
func Metrics() []Metric {
	out := make([]Metric, 0, metricCount)
	for m := MetricSpeed; m < metricCount; m++ {
		out = append(out, m)
	}
	return out
}

// ParseMetric resolves a metric from its snake_case name.
func ParseMetric(s string) (Metric, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for m, n := range metricNames {
		if n == name {
			return Metric(m), nil
		}
	}
	return 0, fmt.Errorf("unknown metric %q", s)
}

func (m Metric) String() string {
	if m < 0 || m >= metricCount {
		return fmt.Sprintf("metric(%d)", int(m))
	}
	return metricNames[m]
}

// LowerIsBetter reports whether smaller raw values indicate better stuff.
func (m Metric) LowerIsBetter() bool {
	return m == MetricExitVelocity || m == MetricLaunchAngle
}

// Magnitude reports whether rows contribute |value| rather than value.
func (m Metric) Magnitude() bool {
	return m == MetricHorizontalBreak || m == MetricVerticalBreak
}

// PitcherProfile holds one usage-weighted scalar per metric, in native units.
// A nil field means the pitcher had no qualifying row for that metric.
type PitcherProfile struct {
	Speed              *float64 `json:"speed"`
	HorizontalBreakAbs *float64 `json:"horizontal_break_abs"`
	VerticalBreakAbs   *float64 `json:"vertical_break_abs"`
	SpinRate           *float64 `json:"spin_rate"`
	ExitVelocity       *float64 `json:"exit_velocity"`
	LaunchAngle        *float64 `json:"launch_angle"`
}

func (p *PitcherProfile) field(m Metric) **float64 {
	switch m {
	case MetricSpeed:
		return &p.Speed
	case MetricHorizontalBreak:
		return &p.HorizontalBreakAbs
	case MetricVerticalBreak:
		return &p.VerticalBreakAbs
	case MetricSpinRate:
		return &p.SpinRate
	case MetricExitVelocity:
		return &p.ExitVelocity
	case MetricLaunchAngle:
		return &p.LaunchAngle
	default:
		return nil
	}
}

// Value returns the metric and whether it is present.
func (p PitcherProfile) Value(m Metric) (float64, bool) {
	f := p.field(m)
	if f == nil || *f == nil {
		return 0, false
	}
	return **f, true
}

// With returns a copy of p with m set to v.
func (p PitcherProfile) With(m Metric, v float64) PitcherProfile {
	if f := p.field(m); f != nil {
		*f = &v
	}
	return p
}

// PitcherZScores holds one standardized value per metric. Positive is
// always better; a metric the pitcher never had is 0.
type PitcherZScores struct {
	Speed              float64 `json:"z_speed"`
	HorizontalBreakAbs float64 `json:"z_hb"`
	VerticalBreakAbs   float64 `json:"z_ivb"`
	SpinRate           float64 `json:"z_spin"`
	ExitVelocity       float64 `json:"z_ev"`
	LaunchAngle        float64 `json:"z_la"`
}

// Value returns the z-score for m.
func (z PitcherZScores) Value(m Metric) float64 {
	switch m {
	case MetricSpeed:
		return z.Speed
	case MetricHorizontalBreak:
		return z.HorizontalBreakAbs
	case MetricVerticalBreak:
		return z.VerticalBreakAbs
	case MetricSpinRate:
		return z.SpinRate
	case MetricExitVelocity:
		return z.ExitVelocity
	case MetricLaunchAngle:
		return z.LaunchAngle
	default:
		return 0
	}
}

// Set stores v as the z-score for m.
func (z *PitcherZScores) Set(m Metric, v float64) {
	switch m {
	case MetricSpeed:
		z.Speed = v
	case MetricHorizontalBreak:
		z.HorizontalBreakAbs = v
	case MetricVerticalBreak:
		z.VerticalBreakAbs = v
	case MetricSpinRate:
		z.SpinRate = v
	case MetricExitVelocity:
		z.ExitVelocity = v
	case MetricLaunchAngle:
		z.LaunchAngle = v
	}
}

// MetricStats describes one metric across the population.
type MetricStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std"`
	Count  int     `json:"count"`
}

// PopulationStats maps each metric name to its population statistics.
type PopulationStats map[string]MetricStats

// Get returns the stats for m.
func (s PopulationStats) Get(m Metric) MetricStats {
	return s[m.String()]
}

// StuffScoreResult is one leaderboard row.
type StuffScoreResult struct {
	Rank         int            `json:"rank"`
	PitcherID    PitcherID      `json:"pitcher_id"`
	Name         string         `json:"name"`
	RawScore     float64        `json:"raw_score"`
	DisplayScore float64        `json:"display_score"`
	ZScores      PitcherZScores `json:"z_scores"`
	Profile      PitcherProfile `json:"profile"`
}
