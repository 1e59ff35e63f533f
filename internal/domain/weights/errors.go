package weights

import "errors"

// Sentinel kinds for calibration errors.
var (
	ErrInsufficientData = errors.New("insufficient data for calibration")
	ErrNoActiveWeights  = errors.New("no active weight set")
	ErrInvalidWeights   = errors.New("invalid weights")
)
