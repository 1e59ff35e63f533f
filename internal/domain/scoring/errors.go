package scoring

import "errors"

// Sentinel kinds for scorer configuration errors.
var (
	ErrInvalidBounds = errors.New("invalid split bounds")
	ErrInvalidTarget = errors.New("invalid target percentile")
)
