package worker

import (
	"time"

	"github.com/okian/focusengine/pkg/logger"
)

// Option applies a configuration option to the Recalibrator.
type Option func(*Recalibrator)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *Recalibrator) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *Recalibrator) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithRunTimeout bounds a single recalibration run. Zero means no bound.
func WithRunTimeout(d time.Duration) Option {
	return func(w *Recalibrator) {
		if d >= 0 {
			w.runTimeout = d
		}
	}
}

// WithRunOnStart triggers one run as soon as the loop starts.
func WithRunOnStart(v bool) Option {
	return func(w *Recalibrator) {
		w.runOnStart = v
	}
}
