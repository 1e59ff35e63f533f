package service

import (
	"time"

	"github.com/okian/focusengine/internal/adapters/cache"
	"github.com/okian/focusengine/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithCache replaces the default row-store focus cache.
func WithCache(c cache.Cache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithCacheTTL sets how long a computed focus stays fresh.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithCalibrationDefaults sets the window and population threshold used
// when a request does not name them.
func WithCalibrationDefaults(windowSize, minPlayers int) Option {
	return func(s *Service) {
		if windowSize > 0 {
			s.windowSize = windowSize
		}
		if minPlayers > 0 {
			s.minPlayers = minPlayers
		}
	}
}

// WithTargetPercentile sets the percentile players are measured against.
func WithTargetPercentile(p float64) Option {
	return func(s *Service) {
		if p > 0 {
			s.targetPercentile = p
		}
	}
}

// WithSplitBounds sets the per-component share floor and ceiling.
func WithSplitBounds(floor, ceiling float64) Option {
	return func(s *Service) {
		s.splitFloor = floor
		s.splitCeiling = ceiling
	}
}

// WithMaxTestResults caps results per recommendation.
func WithMaxTestResults(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxTestResults = n
		}
	}
}

// WithAdherence sets the at-risk threshold and trailing event window.
func WithAdherence(threshold int, window time.Duration) Option {
	return func(s *Service) {
		if threshold >= 0 {
			s.adherenceThreshold = threshold
		}
		if window > 0 {
			s.adherenceWindow = window
		}
	}
}

// WithRosterConcurrency bounds parallel scoring for team focus.
func WithRosterConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.rosterConcurrency = n
		}
	}
}

// WithRecalibrateInterval schedules background calibration. Zero disables it.
func WithRecalibrateInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.recalibrateInterval = d
		}
	}
}

// WithDedupeSize sets how many archive versions are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
