package roster

import (
	"time"

	"github.com/okian/focusengine/pkg/logger"
)

// Default roster configuration constants.
const (
	DefaultAdherenceThreshold = 50
	DefaultAdherenceWindow    = 30 * 24 * time.Hour
	DefaultConcurrency        = 8
	topReasonCodes            = 3
)

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithLogger sets the aggregator logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.log = l
		}
	}
}

// WithAdherenceThreshold sets the adherence score below which a player is at risk.
func WithAdherenceThreshold(threshold int) Option {
	return func(a *Aggregator) {
		if threshold >= 0 {
			a.threshold = threshold
		}
	}
}

// WithAdherenceWindow sets how far back training events count.
func WithAdherenceWindow(window time.Duration) Option {
	return func(a *Aggregator) {
		if window > 0 {
			a.window = window
		}
	}
}

// WithConcurrency bounds how many players are evaluated at once.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}
