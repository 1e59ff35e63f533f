package weights

import (
	"time"

	"github.com/okian/focusengine/pkg/logger"
)

// Default calibration parameters.
const (
	DefaultWindowSize = 3
	DefaultMinPlayers = 100
)

// sentinelFloor excludes placeholder values such as -999 from the population.
const sentinelFloor = -100

// Option applies a configuration option to the Calibrator.
type Option func(*Calibrator)

// WithLogger sets the calibrator logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Calibrator) {
		if l != nil {
			c.log = l
		}
	}
}

// WithDefaults sets the window size and minimum population used by ActiveOrCompute.
func WithDefaults(windowSize, minPlayers int) Option {
	return func(c *Calibrator) {
		if windowSize > 0 {
			c.windowSize = windowSize
		}
		if minPlayers > 0 {
			c.minPlayers = minPlayers
		}
	}
}

// WithClock overrides the time source used for ComputedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Calibrator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIDGenerator overrides how new weight sets are identified.
func WithIDGenerator(gen func() string) Option {
	return func(c *Calibrator) {
		if gen != nil {
			c.newID = gen
		}
	}
}
