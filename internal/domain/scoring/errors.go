package scoring

import "errors"

// Sentinel kinds for scoring configuration faults.
var (
	ErrInvalidWeights      = errors.New("invalid stuff score weights")
	ErrInvalidDisplayScale = errors.New("invalid display scale")
)
