package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrUnknownPopulation = errors.New("unknown population")
	ErrInvalidInput      = errors.New("invalid input")
	ErrNoSource          = errors.New("no data source configured")
	ErrNotStarted        = errors.New("service not started")
	ErrNoQueue           = errors.New("background refresh not configured")
	ErrQueueFull         = errors.New("refresh queue full")
)
