package repository

import (
	"time"

	"github.com/okian/focusengine/pkg/logger"
)

// Option applies a configuration option to a store.
type Option func(*options)

type options struct {
	metricsUpdateInterval time.Duration
	log                   logger.Logger
	slowThreshold         time.Duration
	batchSize             int
}

func defaultOptions() options {
	return options{
		metricsUpdateInterval: 10 * time.Second,
		slowThreshold:         time.Second,
		batchSize:             500,
	}
}

// WithMetricsUpdateInterval sets the interval for background row count updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(o *options) {
		if interval > 0 {
			o.metricsUpdateInterval = interval
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithSlowThreshold sets the duration above which gorm logs a query as slow.
func WithSlowThreshold(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.slowThreshold = d
		}
	}
}

// WithBatchSize sets the number of rows per INSERT for bulk upserts.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}
