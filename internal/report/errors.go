package report

import "errors"

var (
	// ErrService reports a non-200 response from the service.
	ErrService = errors.New("service error")

	// ErrInconsistent reports a leaderboard that breaks its ordering rules.
	ErrInconsistent = errors.New("inconsistent leaderboard")
)
