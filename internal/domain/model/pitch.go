// Package model contains domain models passed between layers.
package model

// nullPitchType labels rows whose pitch type was not classified.
const nullPitchType = "NULL"

// PitcherID identifies a pitcher (the data source's player_id).
type PitcherID int64

// Pitcher is a roster entry with pitch data available.
type Pitcher struct {
	ID   PitcherID `json:"pitcher_id"`
	Name string    `json:"name"`
}

// PitchTypeSummary aggregates one pitcher's pitches of a single type.
// Nil pointers mirror NULL columns in the source.
type PitchTypeSummary struct {
	PitchType               *string  `json:"pitch_type"`
	PitchCount              int      `json:"pitch_count"`
	UsagePct                *float64 `json:"usage_pct"` // 0-100, the aggregation weight
	AvgSpeed                *float64 `json:"avg_speed"`
	AvgHorizontalBreak      *float64 `json:"avg_horizontal_break"`
	AvgInducedVerticalBreak *float64 `json:"avg_induced_vertical_break"`
	AvgSpinRate             *float64 `json:"avg_spin_rate"`
	AvgHitExitSpeed         *float64 `json:"avg_hit_exit_speed"`
	AvgHitLaunchAngle       *float64 `json:"avg_hit_launch_angle"`
}

// Label returns the pitch type, or "NULL" for unclassified rows.
func (s PitchTypeSummary) Label() string {
	if s.PitchType == nil {
		return nullPitchType
	}
	return *s.PitchType
}

// Raw returns the row's value for m before any magnitude transform.
func (s PitchTypeSummary) Raw(m Metric) *float64 {
	switch m {
	case MetricSpeed:
		return s.AvgSpeed
	case MetricHorizontalBreak:
		return s.AvgHorizontalBreak
	case MetricVerticalBreak:
		return s.AvgInducedVerticalBreak
	case MetricSpinRate:
		return s.AvgSpinRate
	case MetricExitVelocity:
		return s.AvgHitExitSpeed
	case MetricLaunchAngle:
		return s.AvgHitLaunchAngle
	default:
		return nil
	}
}

// Float returns a pointer to v; handy for building summaries in code.
func Float(v float64) *float64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }

// Pitch is a single tracked pitch as stored in the source.
type Pitch struct {
	PitcherID            PitcherID
	PitchType            *string
	ReleaseSpeed         *float64
	HorizontalBreak      *float64
	InducedVerticalBreak *float64
	SpinRate             *float64
	HitExitSpeed         *float64
	HitLaunchAngle       *float64
}
