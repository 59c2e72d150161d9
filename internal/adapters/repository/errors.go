package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
	ErrSource       = errors.New("source query failed")
	ErrStore        = errors.New("snapshot store failed")
)
