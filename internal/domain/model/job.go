package model

import "time"

// Reasons a leaderboard refresh was requested.
const (
	RefreshStartup   = "startup"
	RefreshScheduled = "scheduled"
	RefreshRequested = "requested"
)

// RefreshJob asks a worker to recompute one population's leaderboard.
type RefreshJob struct {
	Population string    // population name, e.g. "main"
	Reason     string    // why the job was enqueued
	EnqueuedAt time.Time // enqueue time, used for latency
}
